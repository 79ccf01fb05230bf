package middlewares

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	idempotencyPending  = "pending"
	idempotencyComplete = "complete"

	// pending records outlive any request that can still be running
	defaultPendingTTL = time.Minute
)

// IdempotencyStore keeps responses to keyed requests in redis so a retried
// request gets the first answer instead of running again.
type IdempotencyStore struct {
	client     *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

// NewIdempotencyStore keeps completed responses for ttl. A key claimed by a
// request that never finishes frees itself after a minute.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl, pendingTTL: defaultPendingTTL}
}

type storedResponse struct {
	State       string `json:"state"`
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

type bodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Requests without the header, or any request while redis is unreachable,
// pass straight through. Server errors are not stored so the client may
// retry them.
func Idempotency(store *IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if store == nil || store.client == nil || key == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, errors.New("unreadable request body"))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := context.WithoutCancel(c.Request.Context())
		redisKey := "idempotency:" + c.GetString(ContextUserID) + ":" + key
		fingerprint := requestFingerprint(c.Request.Method, c.FullPath(), body)

		pending, _ := json.Marshal(storedResponse{State: idempotencyPending, Fingerprint: fingerprint})
		acquired, err := store.client.SetNX(ctx, redisKey, pending, store.pendingTTL).Result()
		if err != nil {
			utils.ErrorLogger.WithError(err).Warn("idempotency store unavailable, passing through")
			c.Next()
			return
		}

		if !acquired {
			raw, err := store.client.Get(ctx, redisKey).Bytes()
			if err != nil {
				utils.ErrorLogger.WithError(err).Warn("idempotency lookup failed, passing through")
				c.Next()
				return
			}
			var stored storedResponse
			if err := json.Unmarshal(raw, &stored); err != nil {
				utils.ErrorLogger.WithError(err).Warn("corrupt idempotency record, passing through")
				c.Next()
				return
			}

			switch {
			case stored.Fingerprint != fingerprint:
				utils.RespondError(c, http.StatusUnprocessableEntity, utils.CodeIdempotencyMismatch, errors.New("idempotency key already used for a different request"))
			case stored.State == idempotencyPending:
				utils.RespondError(c, http.StatusConflict, utils.CodeIdempotencyInProgress, errors.New("a request with this idempotency key is still in progress"))
			default:
				c.Header(ReplayedHeader, "true")
				c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			}
			c.Abort()
			return
		}

		// Released on server errors, failed stores and panics unwinding
		// through c.Next, so the client can retry.
		stored := false
		defer func() {
			if stored {
				return
			}
			if err := store.client.Del(ctx, redisKey).Err(); err != nil {
				utils.ErrorLogger.WithError(err).Warn("failed to release idempotency key")
			}
		}()

		writer := &bodyWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if status >= http.StatusInternalServerError {
			return
		}

		complete, _ := json.Marshal(storedResponse{
			State:       idempotencyComplete,
			Fingerprint: fingerprint,
			Status:      status,
			Body:        writer.body.Bytes(),
		})
		if err := store.client.Set(ctx, redisKey, complete, store.ttl).Err(); err != nil {
			utils.ErrorLogger.WithError(err).Warn("failed to store idempotent response")
			return
		}
		stored = true
	}
}

func requestFingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
