// Package network turns raw map data into the road segments the planner
// consumes, and reads and writes ready-made segment files.
package network

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNoElements is returned for a document without an "elements" array.
var ErrNoElements = errors.New("network: overpass document has no elements")

// DefaultHighways are the highway tag values treated as routable.
var DefaultHighways = []string{
	"secondary", "primary", "tertiary", "residential",
	"unclassified", "living_street", "roundabout",
}

// Way is an ordered run of node references with its tags.
type Way struct {
	ID    int64             `json:"id"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags,omitempty"`
}

// Name returns the way's name tag.
func (w Way) Name() string { return w.Tags["name"] }

// Point is a raw map node.
type Point struct {
	ID  int64   `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Extract is the routable content of an Overpass response: every node and
// the ways whose highway tag is allowed.
type Extract struct {
	Points []Point
	Ways   []Way
}

type element struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat"`
	Lon   float64           `json:"lon"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

// DecodeOverpass reads an Overpass API JSON response ([out:json]) and keeps
// nodes plus the ways whose highway tag is in highways. A nil highways
// means DefaultHighways.
func DecodeOverpass(r io.Reader, highways []string) (*Extract, error) {
	if highways == nil {
		highways = DefaultHighways
	}
	allowed := make(map[string]bool, len(highways))
	for _, h := range highways {
		allowed[h] = true
	}

	var doc struct {
		Elements []element `json:"elements"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode overpass: %w", err)
	}
	if doc.Elements == nil {
		return nil, ErrNoElements
	}

	ex := &Extract{}
	for _, el := range doc.Elements {
		switch el.Type {
		case "node":
			ex.Points = append(ex.Points, Point{ID: el.ID, Lat: el.Lat, Lon: el.Lon})
		case "way":
			if allowed[el.Tags["highway"]] {
				ex.Ways = append(ex.Ways, Way{ID: el.ID, Nodes: el.Nodes, Tags: el.Tags})
			}
		}
	}
	return ex, nil
}
