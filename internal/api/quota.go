package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fileworks/fileworks/internal/apperror"
	"github.com/fileworks/fileworks/internal/logger"
	"github.com/fileworks/fileworks/internal/metrics"
)

type contextKey string

const (
	sessionKey   contextKey = "quota_session"
	submitterKey contextKey = "submitter_id"
)

const sessionCookie = "fw_session"

// Counter is the quota backend. Production uses Redis; tests swap in a map.
type Counter interface {
	Get(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) error
}

// RedisCounter keeps daily quota counts in Redis with a two-day expiry so
// stale keys clean themselves up.
type RedisCounter struct {
	Client *redis.Client
}

func (c *RedisCounter) Get(ctx context.Context, key string) (int64, error) {
	n, err := c.Client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

func (c *RedisCounter) Incr(ctx context.Context, key string) error {
	pipe := c.Client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

// Quota enforces the anonymous daily conversion limit. Authenticated callers
// (valid bearer token) bypass it entirely.
type Quota struct {
	Counter   Counter
	Limit     int
	JWTSecret string

	// SecureCookies marks the session cookie Secure for HTTPS deployments.
	SecureCookies bool
}

func quotaKey(session string, now time.Time) string {
	return fmt.Sprintf("quota:%s:%s", session, now.UTC().Format("2006-01-02"))
}

// submitter extracts the subject of a valid HS256 bearer token. An absent
// header means anonymous; a present but invalid token is rejected outright.
func (q *Quota) submitter(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", nil
	}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", apperror.ErrInvalidToken
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(q.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", apperror.ErrInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", apperror.ErrInvalidToken
	}
	return sub, nil
}

// Middleware gates submission routes. Anonymous callers get a session cookie
// and are rejected once the day's count reaches the limit. The count is NOT
// incremented here: Consume runs only after a submission is accepted, so
// rejected requests never burn quota.
func (q *Quota) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, err := q.submitter(r)
		if err != nil {
			apperror.WriteJSON(w, r, err)
			return
		}
		if sub != "" {
			ctx := context.WithValue(r.Context(), submitterKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		session := q.session(w, r)
		ctx := context.WithValue(r.Context(), sessionKey, session)

		count, err := q.Counter.Get(ctx, quotaKey(session, time.Now()))
		if err != nil {
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrServiceUnavailable))
			return
		}
		if count >= int64(q.Limit) {
			metrics.RecordQuotaExceeded()
			apperror.WriteJSON(w, r, apperror.ErrConversionLimitExceeded)
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// session returns the caller's session id, minting and setting the cookie on
// first contact.
func (q *Quota) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	session := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session,
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   q.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return session
}

// Consume charges one conversion against the caller's daily count. No-op for
// authenticated callers. Failures are logged, not surfaced: the submission
// already succeeded.
func (q *Quota) Consume(ctx context.Context) {
	session, ok := ctx.Value(sessionKey).(string)
	if !ok || session == "" {
		return
	}
	if err := q.Counter.Incr(ctx, quotaKey(session, time.Now())); err != nil {
		logger.FromContext(ctx).Error("quota increment failed", "session", session, "error", err)
	}
}

// SubmitterID returns the authenticated subject, empty for anonymous.
func SubmitterID(ctx context.Context) string {
	if sub, ok := ctx.Value(submitterKey).(string); ok {
		return sub
	}
	return ""
}
