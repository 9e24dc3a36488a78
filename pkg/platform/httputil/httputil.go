// Package httputil holds the JSON response helpers shared by all handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	dErrors "feedlog/pkg/domain-errors"
)

// MaxBodyBytes bounds request bodies read by handlers.
const MaxBodyBytes = 1 << 20

// ErrorBody is the response envelope for every failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validatable is implemented by request bodies that normalize and check themselves.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into the structured error body. Internal errors
// never leak their cause.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	message := dErrors.MessageOf(err)
	if code == dErrors.CodeInternal {
		message = "internal error"
	}
	if dErrors.Retryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	WriteJSON(w, dErrors.HTTPStatus(code), ErrorBody{
		Error: ErrorDetail{Code: string(code), Message: message},
	})
}

// ReadBody reads a bounded raw request body.
func ReadBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to read request body")
	}
	if len(body) > MaxBodyBytes {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "request body too large")
	}
	return body, nil
}

// DecodeAndPrepare decodes a JSON body into T and runs its validation. On
// failure it writes the error response and returns ok=false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	req := PT(new(T))
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "failed to decode request body",
				"request_id", requestID,
				"error", err,
			)
		}
		msg := "invalid JSON body"
		var syntaxErr *json.SyntaxError
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		} else if errors.As(err, &syntaxErr) {
			msg = "malformed JSON body"
		}
		WriteError(w, dErrors.New(dErrors.CodeInvalidInput, msg))
		return nil, false
	}
	if err := req.Validate(); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "invalid request",
				"request_id", requestID,
				"error", err,
			)
		}
		if !dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			err = dErrors.Wrap(err, dErrors.CodeInvalidInput, err.Error())
		}
		WriteError(w, err)
		return nil, false
	}
	return req, true
}

// PathParam returns the decoded value of a chi route parameter. chi routes on
// r.URL.RawPath when the request has one (an escaped '/' such as
// localhost%2Fnpm) and on the already-decoded r.URL.Path otherwise, so the
// segment is unescaped only in the first case.
func PathParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, nil
	}
	decoded, err := url.PathUnescape(v)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, name+" path segment is not valid percent-encoding")
	}
	return decoded, nil
}
