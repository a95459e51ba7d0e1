package api

import (
	"fmt"
	"regexp"

	"roadcover/internal/network"
	"roadcover/internal/opt"
)

// Run ids double as broker topics and Redis channel suffixes.
var runIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func validatePlanRequest(req *PlanRequest) error {
	if req.Algorithm != "" {
		if _, err := opt.NewSolver(req.Algorithm); err != nil {
			return fmt.Errorf("invalid algorithm: %s", req.Algorithm)
		}
	}
	if req.NetworkID == "" && len(req.Segments) == 0 {
		return fmt.Errorf("networkId or segments required")
	}
	if req.NetworkID != "" && len(req.Segments) > 0 {
		return fmt.Errorf("networkId and segments are mutually exclusive")
	}
	if req.RunID != "" && !runIDPattern.MatchString(req.RunID) {
		return fmt.Errorf("runId must match %s", runIDPattern)
	}
	if req.TimeoutMs < 0 {
		return fmt.Errorf("timeoutMs must be >= 0")
	}
	return nil
}

func validateNetwork(nf *network.File) error {
	if nf.Name == "" {
		return fmt.Errorf("name required")
	}
	if len(nf.Segments) == 0 {
		return fmt.Errorf("network has no segments")
	}
	for i, s := range nf.Segments {
		if len(s.Nodes) < 2 {
			return fmt.Errorf("segment %d (id %d) has %d nodes", i, s.ID, len(s.Nodes))
		}
		if s.Distance < 0 {
			return fmt.Errorf("segment %d (id %d) has negative distance", i, s.ID)
		}
	}
	return nil
}
