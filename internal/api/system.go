package api

import (
	"net/http"
	"time"
)

// handleSystemInfo reports what this instance is serving and the health
// of its optional backends. Intended for dashboards and smoke checks,
// not machine consumption of blueprint state.
func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"version":        s.version,
		"core_version":   s.coreVersion,
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		"domains":        s.registries.Domains(),
		"cached":         s.registries.Counts(),
	}

	if s.hub != nil {
		info["websocket_clients"] = s.hub.ClientCount()
	}

	info["mqtt_connected"] = s.mqtt != nil && s.mqtt.IsConnected()
	info["usage_connected"] = s.usage != nil && s.usage.IsConnected()

	if s.db != nil {
		status := "ok"
		if err := s.db.HealthCheck(r.Context()); err != nil {
			status = "unhealthy"
			s.logger.Warn("database health check failed", "error", err)
		}
		info["database"] = status
	}

	writeJSON(w, http.StatusOK, info)
}
