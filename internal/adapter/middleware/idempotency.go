package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// How long the in-progress lock is held before the handler must have
// finished and written the final entry.
const provisionalLockTTL = 60 * time.Second

var reRequestID = regexp.MustCompile(`^[a-f0-9-]{16,36}$`)

type replayEntry struct {
	InProgress bool      `json:"in_progress"`
	Code       int       `json:"code"`
	Body       []byte    `json:"body"`
	BodySHA256 string    `json:"body_sha256"`
	CreatedAt  time.Time `json:"created_at"`
}

type responseRecorder struct {
	http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.code = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Idempotency replays the recorded response when a mutating request is
// retried with the same X-Request-Id, and rejects a reused id whose body
// differs. Submission and upload routes sit behind this so a retried HTTP
// call can never double-submit an application.
func Idempotency(rdb *redis.Client, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			reqID := strings.ToLower(strings.TrimSpace(req.Header.Get("X-Request-Id")))
			if reqID == "" {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing X-Request-Id"})
			}
			if !reRequestID.MatchString(reqID) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid X-Request-Id format"})
			}

			var body []byte
			if req.Body != nil {
				body, _ = io.ReadAll(req.Body)
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
			sum := sha256.Sum256(body)
			bodyHash := hex.EncodeToString(sum[:])

			key := "idem:" + strings.ToLower(req.Method) + ":" + c.Path() + ":" + reqID
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()

			provisional, _ := json.Marshal(replayEntry{
				InProgress: true,
				BodySHA256: bodyHash,
				CreatedAt:  time.Now().UTC(),
			})
			locked, err := rdb.SetNX(ctx, key, provisional, provisionalLockTTL).Result()
			if err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "idempotency store unavailable"})
			}
			if !locked {
				var cur replayEntry
				if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
					_ = json.Unmarshal(raw, &cur)
				}
				if cur.BodySHA256 != "" && cur.BodySHA256 != bodyHash {
					return c.JSON(http.StatusConflict, map[string]string{"error": "X-Request-Id reused with different body"})
				}
				if !cur.InProgress && cur.Code != 0 {
					return c.Blob(cur.Code, echo.MIMEApplicationJSON, cur.Body)
				}
				return c.JSON(http.StatusConflict, map[string]string{"error": "request is already in progress"})
			}

			rec := &responseRecorder{ResponseWriter: c.Response().Writer, code: http.StatusOK}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				c.Error(err)
			}

			final, _ := json.Marshal(replayEntry{
				Code:       rec.code,
				Body:       rec.buf.Bytes(),
				BodySHA256: bodyHash,
				CreatedAt:  time.Now().UTC(),
			})
			_ = rdb.Set(context.Background(), key, final, ttl).Err()
			return nil
		}
	}
}
