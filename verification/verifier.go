// Package verification resolves NAFDAC registration numbers against
// the branded product catalog. One service backs both the single-code
// and batch endpoints.
package verification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pharmalink/pharmalink-api/catalog"
	"github.com/pharmalink/pharmalink-api/store"
	"github.com/pharmalink/pharmalink-api/validation"
)

// Verification outcomes.
const (
	StatusVerified   = "verified"
	StatusUnverified = "unverified"
	StatusError      = "error"
)

// ProductResolver is the store dependency of the verifier.
type ProductResolver interface {
	FetchBrandByNafdac(ctx context.Context, code string) (*catalog.BrandDetails, error)
}

// Result is one verification outcome. Product is set only for
// verified codes.
type Result struct {
	Code    string                `json:"nafdacCode"`
	Status  string                `json:"status"`
	Product *catalog.BrandDetails `json:"product,omitempty"`
	Message string                `json:"message,omitempty"`
}

// BatchSummary aggregates a batch run: one entry per input code, in
// input order, plus pass/fail/error counts.
type BatchSummary struct {
	Results    []Result `json:"results"`
	Verified   int      `json:"verified"`
	Unverified int      `json:"unverified"`
	Errors     int      `json:"errors"`
}

// Verifier resolves registration numbers with a per-lookup timeout.
type Verifier struct {
	resolver ProductResolver
	timeout  time.Duration
}

// NewVerifier creates a verifier. A non-positive timeout disables the
// per-lookup deadline.
func NewVerifier(resolver ProductResolver, timeout time.Duration) *Verifier {
	return &Verifier{resolver: resolver, timeout: timeout}
}

// Verify resolves one code. Malformed codes and missing products are
// unverified; only lookup failures produce the error status.
func (v *Verifier) Verify(ctx context.Context, code string) Result {
	normalized := validation.NormalizeNAFDACCode(code)

	if err := validation.ValidateNAFDACCode(normalized); err != nil {
		return Result{Code: code, Status: StatusUnverified, Message: err.Error()}
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	details, err := v.resolver.FetchBrandByNafdac(ctx, normalized)
	if errors.Is(err, store.ErrNotFound) {
		return Result{
			Code:    code,
			Status:  StatusUnverified,
			Message: "no registered product carries this NAFDAC number",
		}
	}
	if err != nil {
		return Result{Code: code, Status: StatusError, Message: "verification lookup failed"}
	}

	return Result{Code: code, Status: StatusVerified, Product: details}
}

// VerifyBatch fans out one lookup per code and aggregates the
// outcomes. Codes are not deduplicated, one failing code does not
// affect the others, and a started batch always runs to completion.
func (v *Verifier) VerifyBatch(ctx context.Context, codes []string) BatchSummary {
	results := make([]Result, len(codes))

	var wg sync.WaitGroup
	for i, code := range codes {
		wg.Add(1)
		go func(i int, code string) {
			defer wg.Done()
			results[i] = v.Verify(ctx, code)
		}(i, code)
	}
	wg.Wait()

	summary := BatchSummary{Results: results}
	for _, r := range results {
		switch r.Status {
		case StatusVerified:
			summary.Verified++
		case StatusUnverified:
			summary.Unverified++
		default:
			summary.Errors++
		}
	}
	return summary
}
