package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"roadcover/internal/config"
	"roadcover/internal/graph"
	"roadcover/internal/network"
	"roadcover/internal/observe"
	"roadcover/internal/opt"
	"roadcover/internal/store"
)

const maxUploadBytes = 64 << 20

// NetworksHandler lists networks (GET) or stores an uploaded one (POST).
// Uploads are JSON or YAML network files, or raw Overpass JSON.
func (s *Server) NetworksHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/networks" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		items, next, err := s.Store.ListNetworks(r.Context(), r.URL.Query().Get("cursor"), limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List networks failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	case http.MethodPost:
		s.uploadNetwork(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) uploadNetwork(w http.ResponseWriter, r *http.Request) {
	format := network.FormatJSON
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); strings.Contains(ct, "yaml") {
		format = network.FormatYAML
	}
	nf, err := network.Decode(io.LimitReader(r.Body, maxUploadBytes), format)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid network", err.Error(), r.URL.Path)
		return
	}
	q := r.URL.Query()
	if v := q.Get("name"); v != "" {
		nf.Name = v
	}
	if v := q.Get("depot"); v != "" {
		d, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid depot", err.Error(), r.URL.Path)
			return
		}
		nf.Depot = d
	}
	if err := validateNetwork(nf); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid network", err.Error(), r.URL.Path)
		return
	}
	info, err := s.Store.SaveNetwork(r.Context(), nf.Name, nf.Depot, nf.Segments)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save network failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// NetworkByIDHandler serves GET and DELETE on /v1/networks/{id}.
func (s *Server) NetworkByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/networks/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		n, err := s.Store.GetNetwork(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Network not found", id, r.URL.Path)
			return
		}
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Get network failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, n)
	case http.MethodDelete:
		err := s.Store.DeleteNetwork(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Network not found", id, r.URL.Path)
			return
		}
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Delete network failed", err.Error(), r.URL.Path)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// PlanRequest asks for a plan over a stored network or inline segments.
// Params is merged over the server defaults, so partial objects are fine.
type PlanRequest struct {
	RunID     string          `json:"runId,omitempty"`
	NetworkID string          `json:"networkId,omitempty"`
	Segments  []graph.Segment `json:"segments,omitempty"`
	Algorithm string          `json:"algorithm,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Core      *bool           `json:"core,omitempty"` // nil means true
	TimeoutMs int             `json:"timeoutMs,omitempty"`
}

type PlanResponse struct {
	RunID    string          `json:"runId"`
	RecordID string          `json:"recordId,omitempty"`
	Core     graph.CoreStats `json:"core"`
	// Connected is false when the planned graph falls apart into several
	// components; segments outside the depot's one are then reported missing.
	Connected  bool        `json:"connected"`
	Components int         `json:"components"`
	Plan       opt.Plan    `json:"plan"`
	Summary    opt.Summary `json:"summary"`
	Report     opt.Report  `json:"report"`
	Dropped    uint64      `json:"droppedEvents"`
}

// PlanHandler runs a planner synchronously and streams its progress to the
// run's topic while it works.
func (s *Server) PlanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req PlanRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validatePlanRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid plan request", err.Error(), r.URL.Path)
		return
	}
	if req.RunID == "" {
		req.RunID = uuid.New().String()
	}
	if req.Algorithm == "" {
		req.Algorithm = s.Config.Algorithm
	}

	params := s.Config.Planner
	segs := req.Segments
	if req.NetworkID != "" {
		n, err := s.Store.GetNetwork(r.Context(), req.NetworkID)
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Network not found", req.NetworkID, r.URL.Path)
			return
		}
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Get network failed", err.Error(), r.URL.Path)
			return
		}
		segs = n.Data
		if n.Depot != 0 {
			params.Depot = n.Depot
		}
	}
	if len(req.Params) > 0 {
		if err := decodeStrict(req.Params, &params); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid params", err.Error(), r.URL.Path)
			return
		}
	}

	g, err := buildGraph(segs)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid network", err.Error(), r.URL.Path)
		return
	}
	var core graph.CoreStats
	if req.Core == nil || *req.Core {
		core = g.Compute2Core()
	}
	connected, components := g.IsConnected(), len(g.Components())
	if !connected {
		s.Logger.Warn("network is disconnected", "run", req.RunID, "components", components)
	}

	ctx := r.Context()
	if req.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	stream := observe.NewStream(s.Broker, req.RunID, streamOptions(s.Config.Stream)...)
	plan, err := opt.Solve(ctx, g, req.Algorithm, params, opt.WithObserver(stream), opt.WithLogger(s.Logger))
	stream.Close()
	switch {
	case errors.Is(err, opt.ErrBadConfig), errors.Is(err, opt.ErrUnknownAlgorithm):
		writeProblem(w, http.StatusBadRequest, "Invalid plan request", err.Error(), r.URL.Path)
		return
	case errors.Is(err, opt.ErrDepotNotFound):
		writeProblem(w, http.StatusUnprocessableEntity, "Depot not in network", err.Error(), r.URL.Path)
		return
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Planning timed out", err.Error(), r.URL.Path)
		return
	case err != nil:
		writeProblem(w, http.StatusInternalServerError, "Planning failed", err.Error(), r.URL.Path)
		return
	}

	resp := PlanResponse{
		RunID:      req.RunID,
		Core:       core,
		Connected:  connected,
		Components: components,
		Plan:       plan,
		Summary:    opt.Summarize(plan),
		Report:     opt.Validate(g, plan.Days, params.Depot, params.MaxDistance),
		Dropped:    stream.Dropped(),
	}
	rec, err := s.Store.SavePlanMetrics(r.Context(), store.NewPlanRecord(req.NetworkID, plan))
	if err != nil {
		s.Logger.Warn("save plan metrics", "run", req.RunID, "err", err)
	} else {
		resp.RecordID = rec.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// buildGraph trusts precomputed segment lengths only when every segment
// carries one.
func buildGraph(segs []graph.Segment) (*graph.Graph, error) {
	for _, s := range segs {
		if s.Distance <= 0 {
			return graph.Build(segs)
		}
	}
	return graph.Build(segs, graph.WithSegmentLengths())
}

func streamOptions(c config.Stream) []observe.StreamOption {
	var opts []observe.StreamOption
	if c.Rate > 0 {
		burst := c.Burst
		if burst < 1 {
			burst = 1
		}
		opts = append(opts, observe.WithRate(rate.Limit(c.Rate), burst))
	}
	if c.Buffer > 0 {
		opts = append(opts, observe.WithBuffer(c.Buffer))
	}
	return opts
}

// PlanMetricsHandler lists stored run metrics, newest first.
func (s *Server) PlanMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/plan-metrics" || r.Method != http.MethodGet {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	q := r.URL.Query()
	items, err := s.Store.ListPlanMetrics(r.Context(), q.Get("networkId"), q.Get("algo"))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List plan metrics failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	type pinger interface{ Ping(ctx context.Context) error }
	if p, ok := s.Broker.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// decodeStrict decodes data over v and rejects unknown keys.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
