package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/analysis"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/engine"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/pgn"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/store"
	"github.com/ChizhovVadim/FractalAnalyzer/pkg/common"
)

var (
	ErrSessionNotFound = errors.New("session was not found")
	ErrTooManySessions = errors.New("too many sessions")
	ErrMalformedJSON   = errors.New("json unmarshalling error")

	ErrCreateRateLimited = errors.New("session creation rate exceeded")
)

type errorResponse struct {
	Error string `json:"error"`
}

const internalErrorJSON = `{"error":"internal server error"}`

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		writeInternalError(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeInternalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = fmt.Fprintln(w, internalErrorJSON)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidFEN),
		errors.Is(err, ErrMalformedJSON),
		errors.Is(err, pgn.ErrIllegalMove),
		errors.Is(err, engine.ErrTerminalPosition):
		return http.StatusBadRequest
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNotReady),
		errors.Is(err, engine.ErrConnectAborted),
		errors.Is(err, engine.ErrNotAnalyzing),
		errors.Is(err, analysis.ErrNoPosition),
		errors.Is(err, analysis.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, ErrTooManySessions),
		errors.Is(err, ErrCreateRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, engine.ErrHandshake),
		errors.Is(err, engine.ErrProcessExited):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a request body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	defer r.Body.Close()
	var decoder = json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}
