package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"installhub/domain"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.New(domain.CodeAlreadyHeld, "held"), http.StatusConflict},
		{fmt.Errorf("claim: %w", domain.ErrInsufficientFunds), http.StatusPaymentRequired},
		{domain.InvalidTransition("assigned", "completed"), http.StatusUnprocessableEntity},
		{domain.ErrAlreadyProcessed, http.StatusOK},
		{domain.ErrNoRefundPolicy, http.StatusFailedDependency},
		{domain.NotFound("booking", "b1"), http.StatusNotFound},
		{domain.Validation("bad stars"), http.StatusBadRequest},
		{domain.ErrSuspended, http.StatusForbidden},
		{domain.Unavailable(errors.New("timeout"), "insert"), http.StatusServiceUnavailable},
		{errors.New("unclassified"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.err); got != tc.want {
			t.Fatalf("StatusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
