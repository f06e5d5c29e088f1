package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pharmalink/pharmalink-api/metrics"
	"github.com/pharmalink/pharmalink-api/verification"
)

type verifyRequest struct {
	NafdacCode string `json:"nafdacCode"`
}

type batchVerifyRequest struct {
	NafdacCodes []string `json:"nafdacCodes"`
}

// VerifyCode implements POST /api/verify: one code in, one
// verified/unverified/error result out.
func VerifyCode(v *verification.Verifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if req.NafdacCode == "" {
			RespondWithError(w, http.StatusBadRequest, "nafdacCode is required")
			return
		}

		result := v.Verify(r.Context(), req.NafdacCode)
		metrics.Verifications.WithLabelValues(result.Status).Inc()

		RespondWithJSON(w, http.StatusOK, result)
	}
}

// VerifyBatch implements POST /api/verify/batch: independent fan-out
// lookups, one result entry per submitted code.
func VerifyBatch(v *verification.Verifier, maxCodes int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchVerifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if len(req.NafdacCodes) == 0 {
			RespondWithError(w, http.StatusBadRequest, "nafdacCodes is required")
			return
		}
		if len(req.NafdacCodes) > maxCodes {
			RespondWithError(w, http.StatusBadRequest,
				fmt.Sprintf("too many codes: %d (max %d)", len(req.NafdacCodes), maxCodes))
			return
		}

		summary := v.VerifyBatch(r.Context(), req.NafdacCodes)
		for _, result := range summary.Results {
			metrics.Verifications.WithLabelValues(result.Status).Inc()
		}

		RespondWithJSON(w, http.StatusOK, summary)
	}
}
