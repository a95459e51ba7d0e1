package api

import (
	"net/http"
	"time"

	"roadcover/internal/buildinfo"
	"roadcover/internal/opt"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"build":      buildinfo.Info(),
		"time":       time.Now().UTC().Format(time.RFC3339),
		"algorithms": opt.Algorithms,
		"config": map[string]any{
			"port":           s.Config.Port,
			"algorithm":      s.Config.Algorithm,
			"planner":        s.Config.Planner,
			"stream":         s.Config.Stream,
			"telemetry":      s.Config.Telemetry.Exporter,
			"hasDatabaseURL": s.Config.DatabaseURL != "",
			"hasRedisURL":    s.Config.RedisURL != "",
		},
	})
}
