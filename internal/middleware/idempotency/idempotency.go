// Package idempotency replays the first successful response for a repeated
// Idempotency-Key so retried creates are applied once.
package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"fxledger/internal/auth"
	"fxledger/internal/log"
	"fxledger/internal/metrics"
)

const (
	// Header is the standard HTTP header for idempotency keys
	Header = "Idempotency-Key"

	// ReplayHeader marks responses served from the store.
	ReplayHeader = "X-Idempotency-Hit"

	maxKeyLength = 255
)

// Response is what gets stored and replayed.
type Response struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// Store keeps replayable responses plus a short-lived in-flight lock per key.
type Store interface {
	Get(ctx context.Context, key string) (Response, bool, error)
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
	Save(ctx context.Context, key string, resp Response) error
}

// captureWriter records status and body while passing them through.
type captureWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.statusCode = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	cw.body.Write(b)
	return cw.ResponseWriter.Write(b)
}

// Middleware must run after auth.Middleware: keys are namespaced by owner so
// two owners can never replay each other's responses. Anonymous requests and
// requests without a key pass straight through.
func Middleware(store Store, m *metrics.Metrics) func(http.Handler) http.Handler {
	logger := log.Component(log.ComponentIdempot)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(Header)
			owner, ok := auth.OwnerID(r.Context())
			if key == "" || !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxKeyLength {
				writeError(w, http.StatusBadRequest, "Idempotency-Key must be at most "+strconv.Itoa(maxKeyLength)+" characters")
				return
			}

			ctx := r.Context()
			storeKey := owner + ":" + key

			cached, found, err := store.Get(ctx, storeKey)
			if err != nil {
				logger.ErrorContext(ctx, "Idempotency lookup failed",
					log.FieldOwnerID, owner,
					log.FieldErrorType, log.ErrorTypeNetwork,
					log.FieldError, err)
				writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
				return
			}
			if found {
				m.IncIdempotentReplay()
				logger.InfoContext(ctx, "Replaying stored response", log.FieldOwnerID, owner)
				replay(w, cached)
				return
			}

			acquired, err := store.Acquire(ctx, storeKey)
			if err != nil {
				logger.ErrorContext(ctx, "Idempotency lock failed",
					log.FieldOwnerID, owner,
					log.FieldErrorType, log.ErrorTypeNetwork,
					log.FieldError, err)
				writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
				return
			}
			if !acquired {
				logger.WarnContext(ctx, "Concurrent request with same idempotency key",
					log.FieldOwnerID, owner,
					log.FieldErrorType, log.ErrorTypeConflict)
				writeError(w, http.StatusConflict, "a request with this idempotency key is currently being processed")
				return
			}
			defer func() {
				// the request context may already be cancelled here
				if err := store.Release(context.WithoutCancel(ctx), storeKey); err != nil {
					logger.WarnContext(ctx, "Failed to release idempotency lock", log.FieldError, err)
				}
			}()

			// another request may have finished between the lookup and the lock
			cached, found, err = store.Get(ctx, storeKey)
			if err != nil {
				logger.ErrorContext(ctx, "Idempotency lookup failed",
					log.FieldOwnerID, owner,
					log.FieldErrorType, log.ErrorTypeNetwork,
					log.FieldError, err)
				writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
				return
			}
			if found {
				m.IncIdempotentReplay()
				logger.InfoContext(ctx, "Replaying response stored while waiting for lock", log.FieldOwnerID, owner)
				replay(w, cached)
				return
			}

			cw := &captureWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(cw, r)

			if cw.statusCode < 200 || cw.statusCode >= 300 {
				return
			}
			resp := Response{Status: cw.statusCode, Body: cw.body.Bytes()}
			if err := store.Save(context.WithoutCancel(ctx), storeKey, resp); err != nil {
				logger.WarnContext(ctx, "Failed to store idempotent response",
					log.FieldOwnerID, owner,
					log.FieldError, err)
			}
		})
	}
}

func replay(w http.ResponseWriter, cached Response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(ReplayHeader, "true")
	w.WriteHeader(cached.Status)
	_, _ = w.Write(cached.Body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
