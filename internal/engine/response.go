package engine

import (
	"errors"
	"net/http"

	"github.com/burrowhq/burrow/internal/database"
	"github.com/burrowhq/burrow/internal/mutation"
	"github.com/burrowhq/burrow/internal/registry"
	"github.com/burrowhq/burrow/internal/store"
	dbsync "github.com/burrowhq/burrow/internal/sync"
)

// ErrConflict marks a request that collides with existing state, such as
// creating a table that already exists.
var ErrConflict = errors.New("conflict")

// Response is the envelope every operation result is wrapped in at the
// transport boundary.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// OK wraps a successful payload.
func OK(data interface{}) Response {
	return Response{Success: true, Data: data}
}

// OKMessage wraps a successful outcome that carries only a message.
func OKMessage(message string) Response {
	return Response{Success: true, Message: message}
}

// Fail wraps an error. Message stays human readable; the raw detail goes
// in the secondary error field.
func Fail(message string, err error) Response {
	resp := Response{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// StatusOf maps an operation error to the HTTP status the transport layer
// should answer with.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var upstream *dbsync.UpstreamError
	if errors.As(err, &upstream) {
		switch upstream.Kind {
		case dbsync.UpstreamTimeout:
			return http.StatusGatewayTimeout
		case dbsync.UpstreamUnreachable:
			return http.StatusServiceUnavailable
		default:
			return http.StatusBadGateway
		}
	}

	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, dbsync.ErrNoTask),
		errors.Is(err, database.ErrAdapterNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, mutation.ErrValidation),
		errors.Is(err, registry.ErrInvalidEngine),
		errors.Is(err, registry.ErrSampleReadOnly),
		errors.Is(err, dbsync.ErrTargetRequired),
		errors.Is(err, dbsync.ErrSampleSource),
		errors.Is(err, database.ErrInvalidQuery):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
