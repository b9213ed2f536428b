package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Trandsoulz/student-connect-client/internal/apiclient"
	"github.com/Trandsoulz/student-connect-client/internal/config"
	"github.com/Trandsoulz/student-connect-client/internal/guard"
	"github.com/Trandsoulz/student-connect-client/internal/model"
	"github.com/Trandsoulz/student-connect-client/internal/storage"
	"github.com/Trandsoulz/student-connect-client/internal/utils"
)

func newSessions(backend storage.Backend) *Sessions {
	return &Sessions{
		Backend: backend,
		API:     apiclient.New("http://127.0.0.1:0", nil),
		TTL:     time.Hour,
		Log:     zap.NewNop(),
	}
}

func echoWithSessions(backend storage.Backend) *echo.Echo {
	e := echo.New()
	e.Use(newSessions(backend).Middleware())
	return e
}

func TestSessions_MintsCookie(t *testing.T) {
	e := echoWithSessions(storage.NewMemory())
	var seen *Browser
	e.GET("/", func(c echo.Context) error {
		seen = CurrentBrowser(c)
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, seen)
	assert.False(t, seen.Store.IsAuthenticated())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	ck := cookies[0]
	assert.Equal(t, SessionCookie, ck.Name)
	assert.Equal(t, seen.ID, ck.Value)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	assert.Equal(t, 3600, ck.MaxAge)
	u, err := uuid.Parse(ck.Value)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), u.Version())
}

func TestSessions_ReusesCookieAndRehydrates(t *testing.T) {
	backend := storage.NewMemory()
	id := uuid.NewString()
	require.NoError(t, backend.Scope(id).Set(context.Background(), map[string]string{
		storage.KeyToken: "t1",
		storage.KeyUser:  `{"id":"a1","fullname":"Admin","role":"admin"}`,
	}))

	e := echoWithSessions(backend)
	var seen *Browser
	e.GET("/", func(c echo.Context) error {
		seen = CurrentBrowser(c)
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: id})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Empty(t, rec.Result().Cookies())
	require.NotNil(t, seen)
	assert.Equal(t, id, seen.ID)
	assert.Equal(t, model.RoleAdmin, seen.Store.Role())
}

func TestSessions_ReissuesCookieOnSignin(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"Login successful","data":{"token":"t1","user":{"id":"u1","fullname":"Ada","role":"student"}}}`))
	}))
	defer api.Close()

	sessions := newSessions(storage.NewMemory())
	sessions.API = apiclient.New(api.URL, nil)
	e := echo.New()
	e.Use(sessions.Middleware())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.POST("/login", func(c echo.Context) error {
		require.True(t, CurrentBrowser(c).Store.Signin(c.Request().Context(), "a@u.edu", "validpass"))
		return c.NoContent(http.StatusSeeOther)
	})

	id := uuid.NewString()
	send := func(method, path string) *http.Response {
		req := httptest.NewRequest(method, path, nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: id})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Result()
	}

	assert.Empty(t, send(http.MethodGet, "/").Cookies())

	cookies := send(http.MethodPost, "/login").Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, id, cookies[0].Value)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSessions_ReplacesMalformedCookie(t *testing.T) {
	e := echoWithSessions(storage.NewMemory())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "../../etc"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, "../../etc", cookies[0].Value)
}

func TestGuard_RedirectStatuses(t *testing.T) {
	e := echoWithSessions(storage.NewMemory())
	g := e.Group("", Guard())
	ok := func(c echo.Context) error {
		d, found := CurrentDecision(c)
		require.True(t, found)
		return c.String(http.StatusOK, string(d.Page))
	}
	g.GET("/dashboard", ok)
	g.POST("/submit", ok)
	g.GET("/login", ok)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/submit", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(guard.PageLogin), rec.Body.String())
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	e := echo.New()
	g := e.Group("/api", JWTAuth("secret"), RequireRole(model.RoleAdmin))
	g.GET("/x", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get(CtxUserID).(string))
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := call("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)

	assert.Equal(t, http.StatusUnauthorized, call("Bearer nope").Code)

	student, err := utils.NewAccessToken("secret", "s1", "student", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call("Bearer "+student.Token).Code)

	admin, err := utils.NewAccessToken("secret", "a1", "admin", 5)
	require.NoError(t, err)
	rec = call("Bearer " + admin.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1", rec.Body.String())
}

func TestTokenBucket(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "test",
	}
	e := echo.New()
	limited := func(c echo.Context, retry int) error {
		return c.String(http.StatusTooManyRequests, MsgRateLimited)
	}
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(cfg, rdb, limited, nil))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, rec.Code)
		if i == 2 {
			assert.Equal(t, MsgRateLimited, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestTokenBucket_DisabledOrNoRedis(t *testing.T) {
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, nil, nil))
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	e.Use(RequestID(), RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusInternalServerError) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	minted := rec.Header().Get(HeaderRequestID)
	_, err := uuid.Parse(minted)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(HeaderRequestID))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, minted, entries[0].ContextMap()["request_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "req-42", entries[1].ContextMap()["request_id"])
	assert.True(t, strings.HasPrefix(entries[1].Message, "Server"))
}
