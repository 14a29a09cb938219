package domain

import "errors"

var (
	// ErrInvalidToken signals a session token that is malformed, tampered with,
	// signed with another secret or carries an unsupported version.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrExpiredToken signals a correctly signed session token past its expiry.
	ErrExpiredToken = errors.New("session token expired")
	// ErrCriteriaMismatch signals that the submitted criteria no longer match
	// the fingerprints recorded in the session token.
	ErrCriteriaMismatch = errors.New("search criteria changed")
	// ErrInvalidCursor signals an undecodable page cursor.
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrInvalidCriteria signals criteria the translator cannot express.
	ErrInvalidCriteria = errors.New("invalid criteria")
	// ErrInvalidRequest signals a request that fails validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrBackendUnavailable signals a search backend failure or timeout.
	ErrBackendUnavailable = errors.New("search backend unavailable")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorSearchDisabled signals that no vector store is configured.
	ErrVectorSearchDisabled = errors.New("vector search disabled")
)
