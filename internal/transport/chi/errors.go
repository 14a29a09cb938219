package chi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/logger"
)

// Machine-readable error kinds.
const (
	KindInvalidToken       = "invalid_token"
	KindExpiredToken       = "expired_token"
	KindCriteriaMismatch   = "criteria_mismatch"
	KindInvalidCursor      = "invalid_cursor"
	KindValidationFailed   = "validation_failed"
	KindBadRequest         = "bad_request"
	KindBackendUnavailable = "backend_unavailable"
	KindEmbeddingProvider  = "embedding_provider_error"
	KindNotImplemented     = "not_implemented"
	KindNotFound           = "not_found"
	KindInternal           = "internal_error"
)

type errorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrExpiredToken, http.StatusBadRequest, KindExpiredToken, true),
		sentinelHandler(domain.ErrInvalidToken, http.StatusBadRequest, KindInvalidToken, true),
		sentinelHandler(domain.ErrCriteriaMismatch, http.StatusConflict, KindCriteriaMismatch, true),
		sentinelHandler(domain.ErrInvalidCursor, http.StatusBadRequest, KindInvalidCursor, true),
		sentinelHandler(domain.ErrInvalidCriteria, http.StatusBadRequest, KindValidationFailed, true),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, KindValidationFailed, true),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, KindNotFound, true),
		sentinelHandler(domain.ErrVectorSearchDisabled, http.StatusNotImplemented, KindNotImplemented, false),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, KindEmbeddingProvider, false),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, KindBackendUnavailable, false),
	}
}

// sentinelHandler matches a single sentinel. Client errors carry the full
// message; server-side kinds expose only the sentinel text.
func sentinelHandler(sentinel error, status int, kind string, detailed bool) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if detailed {
			msg = err.Error()
		}
		writeError(w, status, kind, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, KindInternal, "internal error")
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Status: "error", Error: kind, Message: message})
}
