package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"inventory-dashboard/internal/apperror"
)

func TestWriteJSONResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSONResponse(rr, http.StatusOK, map[string]string{"ok": "true"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content-type: %s", ct)
	}
	if body := rr.Body.String(); body == "" {
		t.Fatalf("empty body")
	}
}

func TestWriteErrorResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	writeErrorResponse(rr, http.StatusBadRequest, "bad input")

	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if rr.Code != http.StatusBadRequest || resp.Error != "Bad Request" || resp.Message != "bad input" {
		t.Fatalf("unexpected error response: %d %+v", rr.Code, resp)
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperror.NotFound("missing", nil), http.StatusNotFound},
		{apperror.Validation("bad", nil), http.StatusBadRequest},
		{apperror.Unavailable("off", nil), http.StatusServiceUnavailable},
		{apperror.Remote("HTTP 500", nil), http.StatusBadGateway},
		{apperror.Computation("empty", nil), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		writeServiceError(rr, nil, tt.err, "internal")
		if rr.Code != tt.want {
			t.Fatalf("%v: expected %d, got %d", tt.err, tt.want, rr.Code)
		}
	}
}

func TestParseHelpers(t *testing.T) {
	if v, err := parseOptionalInt(""); err != nil || v != 0 {
		t.Fatalf("expected 0 for empty value, got %d, %v", v, err)
	}
	if v, err := parseOptionalInt(" 25 "); err != nil || v != 25 {
		t.Fatalf("expected 25, got %d, %v", v, err)
	}
	if _, err := parseOptionalInt("ten"); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}

	if v, err := parseBool(""); err != nil || v {
		t.Fatalf("expected false for empty value")
	}
	if v, err := parseBool("1"); err != nil || !v {
		t.Fatalf("expected true for 1")
	}
	if _, err := parseBool("maybe"); err == nil {
		t.Fatalf("expected error for invalid bool")
	}
}
