package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vendorhub/marketplace-backend/api/responses"
	pkgerrors "github.com/vendorhub/marketplace-backend/pkg/errors"
	"github.com/vendorhub/marketplace-backend/pkg/logger"
	"github.com/vendorhub/marketplace-backend/pkg/redis"
)

const idempotencyKeyHeader = "Idempotency-Key"

// pendingMarker occupies the key while the first request is still in flight so
// concurrent retries with the same key cannot both execute.
const pendingMarker = "__pending__"

type idempotencyRecord struct {
	RequestHash string          `json:"request_hash"`
	Status      int             `json:"status"`
	Body        json.RawMessage `json:"body"`
}

// Idempotency replays the stored response for repeated requests carrying the
// same Idempotency-Key. A reused key with a different request body is rejected
// rather than replayed.
func Idempotency(store redis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyKeyHeader)
			if key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashRequest(r.Method, r.URL.Path, UserIDFromContext(r.Context()), body)
			storeKey := store.IdempotencyKey(r.URL.Path, key)

			stored, err := store.Get(r.Context(), storeKey)
			switch {
			case err == nil:
				replayStored(r.Context(), logg, w, stored, requestHash)
				return
			case err != goredis.Nil:
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup failed"))
				return
			}

			created, err := store.SetNX(r.Context(), storeKey, pendingMarker, ttl)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency reservation failed"))
				return
			}
			if !created {
				// Lost the race to a concurrent request with the same key.
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is already in progress"))
				return
			}

			capture := &responseCapture{ResponseWriter: w, buf: &bytes.Buffer{}}
			next.ServeHTTP(capture, r)

			responseBody := capture.buf.Bytes()
			if len(responseBody) == 0 {
				responseBody = []byte("null")
			}
			record := idempotencyRecord{
				RequestHash: requestHash,
				Status:      capture.statusOrOK(),
				Body:        json.RawMessage(responseBody),
			}
			if err := persistRecord(r.Context(), store, storeKey, record, ttl); err != nil && logg != nil {
				ctx := logg.WithField(r.Context(), "idempotency_key", key)
				logg.Error(ctx, "idempotency.store_failed", err)
			}
		})
	}
}

func replayStored(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, stored, requestHash string) {
	if stored == pendingMarker {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is already in progress"))
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotent-Replay", "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(record.Body)
}

// persistRecord swaps the pending marker for the final response record. On
// failure the key is dropped so a retry can execute the request again.
func persistRecord(ctx context.Context, store redis.IdempotencyStore, key string, record idempotencyRecord, ttl time.Duration) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		_ = store.Del(ctx, key)
		return err
	}
	if err := store.Del(ctx, key); err != nil {
		return err
	}
	if _, err := store.SetNX(ctx, key, encoded, ttl); err != nil {
		return err
	}
	return nil
}

func hashRequest(method, path, userID string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type responseCapture struct {
	http.ResponseWriter
	buf    *bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(p []byte) (int, error) {
	c.buf.Write(p)
	return c.ResponseWriter.Write(p)
}

func (c *responseCapture) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
