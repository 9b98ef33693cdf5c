package pay

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/go-kit/log/level"
	"github.com/julienschmidt/httprouter"

	"tripgenie/db"
	"tripgenie/logger"
	"tripgenie/models"
	"tripgenie/utils"
)

// IdempotencyTTL is how long a key and its response are remembered.
const IdempotencyTTL = 24 * time.Hour

func computeRequestHash(r *http.Request, bodyBytes []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(bodyBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// CaptureResponseWriter wraps http.ResponseWriter to capture status and body.
type CaptureResponseWriter struct {
	w           http.ResponseWriter
	statusCode  int
	buf         bytes.Buffer
	wroteHeader bool
}

func NewCaptureResponseWriter(w http.ResponseWriter) *CaptureResponseWriter {
	return &CaptureResponseWriter{w: w, statusCode: http.StatusOK}
}

func (c *CaptureResponseWriter) Header() http.Header {
	return c.w.Header()
}

func (c *CaptureResponseWriter) WriteHeader(statusCode int) {
	if !c.wroteHeader {
		c.statusCode = statusCode
		c.w.WriteHeader(statusCode)
		c.wroteHeader = true
	}
}

func (c *CaptureResponseWriter) Write(b []byte) (int, error) {
	c.buf.Write(b)
	return c.w.Write(b)
}

func (c *CaptureResponseWriter) Status() int {
	return c.statusCode
}

func (c *CaptureResponseWriter) BodyBytes() []byte {
	return c.buf.Bytes()
}

// Idempotent makes next safe to retry when the client sends an
// Idempotency-Key header:
//   - no header: pass-through
//   - new key: run next and remember its response
//   - known key with a different request: 409
//   - known key with a stored 2xx/4xx response: replay it
//   - known key still in flight: 409, the client retries later
//
// 5xx responses are not remembered so a retry can succeed.
func Idempotent(store db.Idempotency, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			next(w, r, ps)
			return
		}

		userID := utils.GetUserIDFromRequest(r)
		bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		now := time.Now()
		rec := models.IdempotencyRecord{
			Key:         userID + ":" + key,
			Method:      r.Method,
			Path:        r.URL.Path,
			UserID:      userID,
			RequestHash: computeRequestHash(r, bodyBytes, userID),
			CreatedAt:   now,
			ExpiresAt:   now.Add(IdempotencyTTL),
		}

		ctx := r.Context()
		existing, err := store.ReserveIdempotencyKey(ctx, rec)
		if err != nil {
			level.Error(logger.Log).Log("msg", "idempotency lookup", "err", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "idempotency lookup error")
			return
		}

		if existing == nil {
			crw := NewCaptureResponseWriter(w)
			next(crw, r, ps)
			if crw.Status() >= http.StatusInternalServerError {
				return
			}
			resp := models.IdempotentResponse{Status: crw.Status(), Body: crw.BodyBytes()}
			if err := store.SaveIdempotentResponse(ctx, rec.Key, resp); err != nil {
				level.Warn(logger.Log).Log("msg", "saving idempotent response", "err", err)
			}
			return
		}

		if existing.RequestHash != rec.RequestHash {
			utils.RespondWithError(w, http.StatusConflict, "idempotency-key reused with a different request")
			return
		}
		if existing.Response == nil {
			utils.RespondWithError(w, http.StatusConflict, "a request with this idempotency-key is still in progress")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(existing.Response.Status)
		_, _ = w.Write(existing.Response.Body)
	}
}
