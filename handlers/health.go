package handlers

import (
	"net/http"

	"github.com/pharmalink/pharmalink-api/health"
)

// HealthCheck serves /health from the checker.
func HealthCheck(checker *health.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, payload, httpStatus := checker.Check(r.Context())
		payload["status"] = status
		RespondWithJSON(w, httpStatus, payload)
	}
}
