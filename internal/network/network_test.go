package network

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"roadcover/internal/graph"
)

const overpassDoc = `{
  "version": 0.6,
  "elements": [
    {"type": "node", "id": 1, "lat": 45.0, "lon": 7.001},
    {"type": "node", "id": 2, "lat": 45.0, "lon": 7.002},
    {"type": "node", "id": 3, "lat": 45.0, "lon": 7.003},
    {"type": "node", "id": 4, "lat": 45.0, "lon": 7.004},
    {"type": "node", "id": 5, "lat": 45.0, "lon": 7.005},
    {"type": "node", "id": 6, "lat": 45.0, "lon": 7.006},
    {"type": "node", "id": 7, "lat": 45.1, "lon": 7.001},
    {"type": "node", "id": 8, "lat": 45.1, "lon": 7.002},
    {"type": "way", "id": 10, "nodes": [1, 2, 3], "tags": {"highway": "residential", "name": "Main"}},
    {"type": "way", "id": 11, "nodes": [3, 4, 5], "tags": {"highway": "tertiary"}},
    {"type": "way", "id": 12, "nodes": [5, 6], "tags": {"highway": "footway"}},
    {"type": "way", "id": 13, "nodes": [7, 99, 8], "tags": {"highway": "residential"}}
  ]
}`

func TestDecodeOverpassFiltersHighways(t *testing.T) {
	ex, err := DecodeOverpass(strings.NewReader(overpassDoc), nil)
	require.NoError(t, err)
	require.Len(t, ex.Points, 8)
	require.Len(t, ex.Ways, 3)
	require.Equal(t, "Main", ex.Ways[0].Name())

	ex, err = DecodeOverpass(strings.NewReader(overpassDoc), []string{"footway"})
	require.NoError(t, err)
	require.Len(t, ex.Ways, 1)
	require.Equal(t, int64(12), ex.Ways[0].ID)
}

func TestDecodeOverpassErrors(t *testing.T) {
	_, err := DecodeOverpass(strings.NewReader(`{"version": 1}`), nil)
	require.ErrorIs(t, err, ErrNoElements)

	_, err = DecodeOverpass(strings.NewReader(`{`), nil)
	require.Error(t, err)
}

func TestPreprocessSplitsTrimsAndKeepsLargestComponent(t *testing.T) {
	ex, err := DecodeOverpass(strings.NewReader(overpassDoc), nil)
	require.NoError(t, err)

	segs, st := Preprocess(ex)
	require.Equal(t, Stats{
		Ways:           3,
		Intermediaries: 1,
		Pieces:         5,
		SingleNode:     2,
		MissingRefs:    1,
		Components:     2,
		Segments:       2,
	}, st)

	require.Len(t, segs, 2)
	first, second := segs[0], segs[1]
	require.Equal(t, int64(1), first.ID)
	require.Equal(t, int64(2), second.ID)
	require.Equal(t, "Main", first.Name)
	require.Empty(t, second.Name)

	ends := func(s graph.Segment) [2]int64 { return [2]int64{s.Nodes[0].ID, s.Nodes[1].ID} }
	require.Equal(t, [2]int64{1, 3}, ends(first))
	require.Equal(t, [2]int64{3, 5}, ends(second))
	require.Len(t, first.Nodes, 2)
	require.True(t, first.Nodes[1].Intermediary)
	require.False(t, first.Nodes[0].Intermediary)

	leg := graph.Haversine(45.0, 7.001, 45.0, 7.002)
	require.InDelta(t, graph.Haversine(45.0, 7.001, 45.0, 7.002)+graph.Haversine(45.0, 7.002, 45.0, 7.003), first.Distance, 1e-12)
	require.InDelta(t, 2*leg, first.Distance, 1e-6)

	g, err := graph.Build(segs, graph.WithSegmentLengths())
	require.NoError(t, err)
	require.True(t, g.IsConnected())
}

func TestLargestComponentTieGoesToSmallestNode(t *testing.T) {
	seg := func(a, b int64) graph.Segment {
		return graph.Segment{Nodes: []graph.Node{{ID: a}, {ID: b}}}
	}
	kept, n := largestComponent([]graph.Segment{seg(2, 3), seg(1, 5)})
	require.Equal(t, 2, n)
	require.Len(t, kept, 1)
	require.Equal(t, int64(1), kept[0].Nodes[0].ID)

	kept, n = largestComponent(nil)
	require.Zero(t, n)
	require.Empty(t, kept)
}

func TestDisjointSet(t *testing.T) {
	ds := newDisjointSet(5)
	ds.union(0, 1)
	ds.union(3, 4)
	ds.union(1, 4)
	require.Equal(t, ds.find(0), ds.find(3))
	require.NotEqual(t, ds.find(0), ds.find(2))
}

func TestFileRoundTripYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	want := &File{
		Name:  "tiny",
		Depot: 1,
		Segments: []graph.Segment{{
			ID:       1,
			Name:     "Main",
			Distance: 1.5,
			Nodes:    []graph.Node{{ID: 1, Lat: 45, Lon: 7}, {ID: 2, Lat: 45.01, Lon: 7}},
		}},
	}
	for _, name := range []string{"net.yaml", "net.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Save(path, want))
		got, err := Load(path)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", name, diff)
		}
	}

	require.ErrorIs(t, Save(filepath.Join(dir, "net.txt"), want), ErrUnknownFormat)
}

func TestLoadOverpassFileIsPreprocessed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turin.json")
	require.NoError(t, os.WriteFile(path, []byte(overpassDoc), 0o644))
	nf, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "turin", nf.Name)
	require.Len(t, nf.Segments, 2)
}

func TestEncodeYAMLShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatYAML, &File{Segments: []graph.Segment{{ID: 4, Nodes: []graph.Node{{ID: 1}, {ID: 2}}}}}))
	require.Contains(t, buf.String(), "segments:")
	require.Contains(t, buf.String(), "id: 4")
}
