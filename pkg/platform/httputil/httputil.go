// Package httputil holds the JSON request/response plumbing shared by all
// HTTP handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "devbank/pkg/domain-errors"
)

// maxBodyBytes caps request bodies before decoding.
const maxBodyBytes = 1 << 20

// Validatable is implemented by request types that validate and parse their
// own fields after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a coded error as the standard JSON error envelope.
// Internal failures return only the code; their messages stay server-side.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	body := map[string]string{"error": string(code)}
	if status < http.StatusInternalServerError {
		var derr *dErrors.Error
		if errors.As(err, &derr) {
			body["error_description"] = derr.Message
		}
	}
	WriteJSON(w, status, body)
}

// DecodeAndPrepare decodes the JSON request body into T and, if T implements
// Validatable, validates it. On failure it writes the error response and
// returns false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := new(T)
	if err := decodeBody(r, req); err != nil {
		logger.WarnContext(ctx, "request decode failed",
			"request_id", requestID,
			"path", r.URL.Path,
			"error", err,
		)
		WriteError(w, err)
		return nil, false
	}
	if v, ok := any(req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			WriteError(w, err)
			return nil, false
		}
	}
	return req, true
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body")
	}
	return nil
}
