package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "devbank/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal" {
			t.Fatalf("expected error code internal, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})

	t.Run("insufficient balance maps to 422", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInsufficientBalance, "not enough lamports"))

		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
		}
	})
}

type decodeReq struct {
	Name string `json:"name"`
}

func (r *decodeReq) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("decodes and validates", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
		req, ok := DecodeAndPrepare[decodeReq](w, r, logger, r.Context(), "req-1")
		if !ok {
			t.Fatalf("expected decode to succeed, body: %s", w.Body.String())
		}
		if req.Name != "ok" {
			t.Fatalf("expected name ok, got %q", req.Name)
		}
	})

	t.Run("empty body is a bad request", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		if _, ok := DecodeAndPrepare[decodeReq](w, r, logger, r.Context(), "req-2"); ok {
			t.Fatalf("expected decode to fail")
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("validation failure writes the envelope", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))
		if _, ok := DecodeAndPrepare[decodeReq](w, r, logger, r.Context(), "req-3"); ok {
			t.Fatalf("expected validation to fail")
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}
