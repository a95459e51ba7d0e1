package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"roadcover/internal/config"
	"roadcover/internal/graph"
	"roadcover/internal/observe"
	"roadcover/internal/opt"
	"roadcover/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(context.Background(), config.Default())
	require.NoError(t, err)
	return s
}

// squareJSON is A(1)-B(2)-C(3)-D(4)-A with 10 km sides and depot A.
const squareJSON = `{
  "name": "square",
  "depot": 1,
  "segments": [
    {"id": 1, "distance": 10, "nodes": [{"id": 1, "lat": 45.00, "lon": 7.00}, {"id": 2, "lat": 45.00, "lon": 7.10}]},
    {"id": 2, "distance": 10, "nodes": [{"id": 2, "lat": 45.00, "lon": 7.10}, {"id": 3, "lat": 45.10, "lon": 7.10}]},
    {"id": 3, "distance": 10, "nodes": [{"id": 3, "lat": 45.10, "lon": 7.10}, {"id": 4, "lat": 45.10, "lon": 7.00}]},
    {"id": 4, "distance": 10, "nodes": [{"id": 4, "lat": 45.10, "lon": 7.00}, {"id": 1, "lat": 45.00, "lon": 7.00}]}
  ]
}`

func do(t *testing.T, h http.HandlerFunc, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	h(rr, req)
	return rr
}

func uploadSquare(t *testing.T, s *Server) store.NetworkInfo {
	t.Helper()
	rr := do(t, s.NetworksHandler, http.MethodPost, "/v1/networks", "application/json", squareJSON)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var info store.NetworkInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	return info
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := do(t, s.HealthHandler, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, s.ReadyHandler, http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestNetworkLifecycle(t *testing.T) {
	s := newTestServer(t)
	info := uploadSquare(t, s)
	require.Equal(t, "square", info.Name)
	require.Equal(t, int64(1), info.Depot)
	require.Equal(t, 4, info.Segments)
	require.InDelta(t, 40.0, info.LengthKm, 1e-9)

	rr := do(t, s.NetworksHandler, http.MethodGet, "/v1/networks?limit=10", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Items      []store.NetworkInfo `json:"items"`
		NextCursor string              `json:"nextCursor"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	require.Empty(t, list.NextCursor)

	rr = do(t, s.NetworkByIDHandler, http.MethodGet, "/v1/networks/"+info.ID, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var n store.Network
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &n))
	require.Len(t, n.Data, 4)

	rr = do(t, s.NetworkByIDHandler, http.MethodDelete, "/v1/networks/"+info.ID, "", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, s.NetworkByIDHandler, http.MethodGet, "/v1/networks/"+info.ID, "", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestUploadYAMLAndOverrides(t *testing.T) {
	s := newTestServer(t)
	doc := `
segments:
  - id: 1
    nodes: [{id: 1, lat: 45, lon: 7}, {id: 2, lat: 45, lon: 7.01}]
`
	rr := do(t, s.NetworksHandler, http.MethodPost, "/v1/networks?name=tiny&depot=2", "application/yaml", doc)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var info store.NetworkInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	require.Equal(t, "tiny", info.Name)
	require.Equal(t, int64(2), info.Depot)
	require.InDelta(t, graph.Haversine(45, 7, 45, 7.01), info.LengthKm, 1e-9)
}

func TestUploadRejectsBadNetworks(t *testing.T) {
	s := newTestServer(t)
	cases := map[string]string{
		"no name":     `{"segments": [{"id": 1, "nodes": [{"id": 1}, {"id": 2}]}]}`,
		"no segments": `{"name": "empty", "segments": []}`,
		"short":       `{"name": "short", "segments": [{"id": 1, "nodes": [{"id": 1}]}]}`,
		"garbage":     `{"name":`,
	}
	for name, body := range cases {
		rr := do(t, s.NetworksHandler, http.MethodPost, "/v1/networks", "application/json", body)
		require.Equal(t, http.StatusBadRequest, rr.Code, name)
	}
	rr := do(t, s.NetworksHandler, http.MethodPost, "/v1/networks?name=x&depot=abc", "application/json", squareJSON)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPlanStoredNetwork(t *testing.T) {
	s := newTestServer(t)
	info := uploadSquare(t, s)

	body := `{"networkId": "` + info.ID + `", "algorithm": "greedy", "params": {"maxDistance": 40, "seed": 3}}`
	rr := do(t, s.PlanHandler, http.MethodPost, "/v1/plan", "application/json", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp PlanResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.RunID)
	require.NotEmpty(t, resp.RecordID)
	require.True(t, resp.Plan.Complete)
	require.Equal(t, opt.StopComplete, resp.Plan.StopReason)
	require.Equal(t, [][]int64{{1, 2, 3, 4, 1}}, resp.Plan.Routes())
	require.Equal(t, int64(1), resp.Plan.Depot)
	require.Equal(t, 4, resp.Core.NodesAfter)
	require.Empty(t, resp.Report.Missing)
	require.Empty(t, resp.Report.OverBudget)
	require.Len(t, resp.Summary.Days, 1)
	require.True(t, resp.Connected)
	require.Equal(t, 1, resp.Components)

	rr = do(t, s.PlanMetricsHandler, http.MethodGet, "/v1/plan-metrics?networkId="+info.ID, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var metrics struct {
		Items []store.PlanRecord `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &metrics))
	require.Len(t, metrics.Items, 1)
	require.Equal(t, resp.RecordID, metrics.Items[0].ID)
	require.True(t, metrics.Items[0].Complete)
}

func TestPlanInlineGenetic(t *testing.T) {
	s := newTestServer(t)
	var nf struct {
		Segments []graph.Segment `json:"segments"`
	}
	require.NoError(t, json.Unmarshal([]byte(squareJSON), &nf))
	req := map[string]any{
		"segments":  nf.Segments,
		"algorithm": "genetic",
		"params":    map[string]any{"depot": 1, "maxDistance": 25, "seed": 9, "populationSize": 10, "generations": 4},
	}
	b, err := json.Marshal(req)
	require.NoError(t, err)
	rr := do(t, s.PlanHandler, http.MethodPost, "/v1/plan", "application/json", string(b))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp PlanResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "genetic", resp.Plan.Algorithm)
	require.Empty(t, resp.Report.DepotViolations)
	require.Empty(t, resp.Report.Gaps)
	require.NotEmpty(t, resp.Plan.Days)
}

func TestPlanReportsDisconnectedNetwork(t *testing.T) {
	s := newTestServer(t)
	node := func(id int64, lat, lon float64) graph.Node { return graph.Node{ID: id, Lat: lat, Lon: lon} }
	segs := []graph.Segment{
		{ID: 1, Distance: 10, Nodes: []graph.Node{node(1, 45.0, 7.0), node(2, 45.0, 7.1)}},
		{ID: 2, Distance: 10, Nodes: []graph.Node{node(2, 45.0, 7.1), node(3, 45.1, 7.0)}},
		{ID: 3, Distance: 10, Nodes: []graph.Node{node(3, 45.1, 7.0), node(1, 45.0, 7.0)}},
		{ID: 4, Distance: 10, Nodes: []graph.Node{node(7, 46.0, 8.0), node(8, 46.0, 8.1)}},
		{ID: 5, Distance: 10, Nodes: []graph.Node{node(8, 46.0, 8.1), node(9, 46.1, 8.0)}},
		{ID: 6, Distance: 10, Nodes: []graph.Node{node(9, 46.1, 8.0), node(7, 46.0, 8.0)}},
	}
	b, err := json.Marshal(map[string]any{
		"segments":  segs,
		"algorithm": "greedy",
		"params":    map[string]any{"depot": 1, "maxDistance": 40, "seed": 2},
	})
	require.NoError(t, err)
	rr := do(t, s.PlanHandler, http.MethodPost, "/v1/plan", "application/json", string(b))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp PlanResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.False(t, resp.Connected)
	require.Equal(t, 2, resp.Components)
	require.Equal(t, 2, resp.Plan.Components)
	require.False(t, resp.Plan.Complete)
	require.Equal(t, 3, resp.Plan.Covered)
	require.Len(t, resp.Report.Missing, 3)
	require.Empty(t, resp.Report.Gaps)
}

func TestPlanErrors(t *testing.T) {
	s := newTestServer(t)
	info := uploadSquare(t, s)
	cases := []struct {
		name string
		body string
		code int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"no input", `{}`, http.StatusBadRequest},
		{"unknown algorithm", `{"networkId": "` + info.ID + `", "algorithm": "tabu"}`, http.StatusBadRequest},
		{"unknown param", `{"networkId": "` + info.ID + `", "params": {"budget": 3}}`, http.StatusBadRequest},
		{"bad param", `{"networkId": "` + info.ID + `", "params": {"maxDistance": -1}}`, http.StatusBadRequest},
		{"bad run id", `{"networkId": "` + info.ID + `", "runId": "a b"}`, http.StatusBadRequest},
		{"missing network", `{"networkId": "nope"}`, http.StatusNotFound},
		{"depot elsewhere", `{"networkId": "` + info.ID + `", "params": {"depot": 99}}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, s.PlanHandler, http.MethodPost, "/v1/plan", "application/json", tc.body)
			require.Equal(t, tc.code, rr.Code, rr.Body.String())
			var p Problem
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
			require.Equal(t, tc.code, p.Status)
		})
	}

	rr := do(t, s.PlanHandler, http.MethodGet, "/v1/plan", "", "")
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRunStreamDeliversPlannerEvents(t *testing.T) {
	s := newTestServer(t)
	info := uploadSquare(t, s)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/runs/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	read := func() wsMessage {
		var m wsMessage
		require.NoError(t, conn.ReadJSON(&m))
		return m
	}
	require.NoError(t, conn.WriteJSON(wsMessage{Type: "connection_init"}))
	require.Equal(t, "connection_ack", read().Type)
	require.NoError(t, conn.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: json.RawMessage(`{"runId":"run-1"}`)}))
	// messages are handled in order, so the pong proves the subscription exists
	require.NoError(t, conn.WriteJSON(wsMessage{Type: "ping"}))
	require.Equal(t, "pong", read().Type)

	body := `{"runId": "run-1", "networkId": "` + info.ID + `", "params": {"maxDistance": 40}}`
	res, err := http.Post(srv.URL+"/v1/plan", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, res.Body)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	seen := map[string]int{}
	for {
		m := read()
		if m.Type == "complete" {
			require.Equal(t, "1", m.ID)
			break
		}
		require.Equal(t, "next", m.Type)
		var evt observe.Event
		require.NoError(t, json.Unmarshal(m.Payload, &evt))
		require.Equal(t, "run-1", evt.Topic)
		seen[evt.Type]++
	}
	require.Equal(t, 4, seen[observe.EventEdgeVisited])
	require.Equal(t, 1, seen[observe.EventPathUpdated])
	require.Equal(t, 1, seen[observe.EventRunFinished])
}

func TestRunStreamRejectsMissingRunID(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/runs/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsMessage{Type: "subscribe", ID: "7", Payload: json.RawMessage(`{}`)}))
	var m wsMessage
	require.NoError(t, conn.ReadJSON(&m))
	require.Equal(t, "error", m.Type)
	require.NoError(t, conn.ReadJSON(&m))
	require.Equal(t, "complete", m.Type)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `http_requests_total{method="GET",path="/healthz",status="200"}`)
}

func TestRouteLabel(t *testing.T) {
	require.Equal(t, "/v1/networks/{id}", routeLabel("/v1/networks/abc"))
	require.Equal(t, "/v1/plan", routeLabel("/v1/plan"))
}

func TestDebugInfo(t *testing.T) {
	s := newTestServer(t)
	rr := do(t, s.DebugJSON, http.MethodGet, "/debug/info", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.ElementsMatch(t, []any{"greedy", "genetic"}, body["algorithms"])
}
