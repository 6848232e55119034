package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := Validation("title is required")
	if !stderrors.Is(err, ErrValidationFailed) {
		t.Fatalf("validation error should match ErrValidationFailed")
	}
	if stderrors.Is(err, ErrNotFound) {
		t.Fatalf("validation error must not match ErrNotFound")
	}

	wrapped := fmt.Errorf("submit: %w", err)
	if !stderrors.Is(wrapped, ErrValidationFailed) {
		t.Fatalf("wrapped error should still match by code")
	}
	if got := AsAppError(wrapped); got.Detail != "title is required" {
		t.Fatalf("unexpected detail %q", got.Detail)
	}
}

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	_ = ErrNotFound.WithDetail("novel 1")
	if ErrNotFound.Detail != "" {
		t.Fatalf("sentinel was mutated: %q", ErrNotFound.Detail)
	}

	err := Persistence("append saved", io.ErrUnexpectedEOF)
	if !stderrors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("persistence error should unwrap to the cause")
	}
	if ErrPersistence.Err != nil {
		t.Fatalf("sentinel was mutated by WithError")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{ErrValidationFailed, http.StatusUnprocessableEntity},
		{ErrNotFound, http.StatusNotFound},
		{ErrSessionBusy, http.StatusConflict},
		{ErrTooManyRequests, http.StatusTooManyRequests},
		{ErrGenerationRequest, http.StatusBadGateway},
		{ErrStreamRead, http.StatusBadGateway},
		{ErrServiceUnavailable, http.StatusServiceUnavailable},
		{ErrPersistence, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if tc.err.HTTPStatus != tc.want {
			t.Errorf("%s: status %d, want %d", tc.err.Code, tc.err.HTTPStatus, tc.want)
		}
	}
}

func TestAsAppErrorWrapsPlainErrors(t *testing.T) {
	got := AsAppError(io.EOF)
	if got.Code != CodeUnknown || got.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected conversion %+v", got)
	}
	if !stderrors.Is(got, io.EOF) {
		t.Fatalf("converted error should unwrap to the original")
	}
}
