package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitResize(t *testing.T, env *testEnv, decorate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := multipartRequest(t, "/api/v1/jobs/image",
		map[string]string{"tool_type": "image_resizer", "width": "50"},
		filePart{field: "file", filename: "photo.png", data: testPNG(t)},
	)
	if decorate != nil {
		decorate(req)
	}
	return env.do(req)
}

func sessionFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAnonymousQuotaLimit(t *testing.T) {
	env := newTestEnv(t)

	first := submitResize(t, env, nil)
	require.Equal(t, http.StatusAccepted, first.Code)
	cookie := sessionFrom(t, first)

	withCookie := func(r *http.Request) { r.AddCookie(cookie) }

	second := submitResize(t, env, withCookie)
	require.Equal(t, http.StatusAccepted, second.Code)

	third := submitResize(t, env, withCookie)
	require.Equal(t, http.StatusForbidden, third.Code)
	resp := decodeError(t, third)
	assert.Equal(t, "conversion_limit_exceeded", resp["code"])

	// The rejected request was not enqueued.
	assert.Equal(t, 2, env.broker.count())
}

func TestRejectedSubmissionDoesNotConsumeQuota(t *testing.T) {
	env := newTestEnv(t)

	first := submitResize(t, env, nil)
	require.Equal(t, http.StatusAccepted, first.Code)
	cookie := sessionFrom(t, first)
	withCookie := func(r *http.Request) { r.AddCookie(cookie) }

	// A validation failure in between burns nothing.
	bad := multipartRequest(t, "/api/v1/jobs/image",
		map[string]string{"tool_type": "image_resizer"},
		filePart{field: "file", filename: "photo.png", data: testPNG(t)},
	)
	bad.AddCookie(cookie)
	require.Equal(t, http.StatusBadRequest, env.do(bad).Code)

	second := submitResize(t, env, withCookie)
	assert.Equal(t, http.StatusAccepted, second.Code)
}

func TestSeparateSessionsHaveSeparateQuotas(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 2; i++ {
		// No cookie reuse: every request is a fresh session.
		rec := submitResize(t, env, nil)
		require.Equal(t, http.StatusAccepted, rec.Code)
	}
	rec := submitResize(t, env, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestAuthenticatedBypassesQuota(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.NewString()
	token := signToken(t, testJWTSecret, userID)

	for i := 0; i < 3; i++ {
		rec := submitResize(t, env, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		require.Equal(t, http.StatusAccepted, rec.Code)

		resp := decodeJob(t, rec)
		job, err := env.store.GetJob(context.Background(), uuid.MustParse(resp.ID))
		require.NoError(t, err)
		assert.Equal(t, userID, job.SubmitterID)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := submitResize(t, env, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+signToken(t, "wrong-secret", "someone"))
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, env.broker.count())
}

func TestSessionCookieSecureFlag(t *testing.T) {
	for _, secure := range []bool{false, true} {
		q := &Quota{SecureCookies: secure}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/image", nil)

		q.session(rec, req)

		var cookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == sessionCookie {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.Equal(t, secure, cookie.Secure)
		assert.True(t, cookie.HttpOnly)
	}
}

func TestQuotaKeyFormat(t *testing.T) {
	at := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "quota:abc:2026-03-14", quotaKey("abc", at))
}
