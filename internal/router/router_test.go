package router

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"go.uber.org/zap"

	"github.com/Trandsoulz/student-connect-client/internal/apiclient"
	"github.com/Trandsoulz/student-connect-client/internal/config"
	"github.com/Trandsoulz/student-connect-client/internal/handler"
	"github.com/Trandsoulz/student-connect-client/internal/middleware"
	"github.com/Trandsoulz/student-connect-client/internal/repository"
	"github.com/Trandsoulz/student-connect-client/internal/session"
	"github.com/Trandsoulz/student-connect-client/internal/storage"
)

const (
	adminEmail = "admin@university.edu"
	adminPass  = "adminpass"
)

// newDevAPI starts the development backend with a seeded admin.
func newDevAPI(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.DevAPIConfig{JWTSecret: "test-secret", AccessTTLMin: 15, BcryptCost: bcrypt.MinCost}
	users := repository.NewUserRepo()
	a := handler.NewAuthHandler(cfg, users, zap.NewNop())
	require.NoError(t, a.SeedAdmin(context.Background(), adminEmail, adminPass))

	e := echo.New()
	RegisterRoutes(e)
	RegisterAuth(e, a, cfg.JWTSecret, config.RateLimitConfig{}, nil, zap.NewNop())
	RegisterFeedback(e, handler.NewFeedbackHandler(repository.NewFeedbackRepo(users), zap.NewNop()), cfg.JWTSecret)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

// newPageServer builds the page echo instance against apiURL.
func newPageServer(t *testing.T, apiURL string, backend storage.Backend, rl config.RateLimitConfig, rdb *redis.Client) *echo.Echo {
	t.Helper()
	renderer, err := handler.NewRenderer()
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = renderer
	e.Pre(echomw.RemoveTrailingSlash())
	RegisterRoutes(e)
	RegisterPages(e, handler.NewPages(zap.NewNop()), &middleware.Sessions{
		Backend: backend,
		API:     apiclient.New(apiURL, nil, apiclient.WithTimeout(5*time.Second)),
		TTL:     time.Hour,
		Log:     zap.NewNop(),
	}, rl, rdb, zap.NewNop())
	return e
}

// newFrontEnd starts the page server against apiURL.
func newFrontEnd(t *testing.T, apiURL string, rl config.RateLimitConfig, rdb *redis.Client) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newPageServer(t, apiURL, storage.NewMemory(), rl, rdb))
	t.Cleanup(srv.Close)
	return srv
}

// browser is a cookie-keeping client that does not follow redirects.
type browser struct {
	t    *testing.T
	base string
	hc   *http.Client
}

type page struct {
	status   int
	location string
	body     string
}

func newBrowser(t *testing.T, base string) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: base, hc: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (b *browser) do(req *http.Request) page {
	b.t.Helper()
	res, err := b.hc.Do(req)
	require.NoError(b.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(b.t, err)
	return page{status: res.StatusCode, location: res.Header.Get("Location"), body: string(body)}
}

func (b *browser) get(path string) page {
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) page {
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// follow issues GETs until a non-redirect response, like a browser would.
func (b *browser) follow(p page) page {
	for i := 0; i < 5 && p.location != ""; i++ {
		p = b.get(p.location)
	}
	return p
}

func (b *browser) login(email, password string) page {
	return b.post("/login", url.Values{"email": {email}, "password": {password}})
}

func (b *browser) register(name, email, password string) page {
	return b.post("/register", url.Values{
		"fullname":        {name},
		"email":           {email},
		"password":        {password},
		"confirmPassword": {password},
		"role":            {"student"},
	})
}

var feedbackLink = regexp.MustCompile(`href="/feedback/([0-9a-f-]{36})"`)

func TestPages_Anonymous(t *testing.T) {
	front := newFrontEnd(t, newDevAPI(t).URL, config.RateLimitConfig{}, nil)
	b := newBrowser(t, front.URL)

	p := b.get("/")
	assert.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "Your voice shapes your campus")

	for _, path := range []string{"/dashboard", "/submit", "/my-feedbacks", "/manage-feedback", "/feedback/abc"} {
		p = b.get(path)
		assert.Equal(t, http.StatusFound, p.status, path)
		assert.Equal(t, "/login", p.location, path)
	}

	p = b.get("/no/such/page")
	assert.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/", p.location)

	p = b.get("/login/")
	assert.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "Welcome Back")

	p = b.get("/healthz")
	assert.Equal(t, http.StatusOK, p.status)

	for _, from := range []string{"/\t/evil.example", "/\n/evil.example", "//evil.example", "https://evil.example"} {
		p = b.post("/logout", url.Values{"from": {from}})
		assert.Equal(t, http.StatusSeeOther, p.status, from)
		assert.Equal(t, "/", p.location, from)
	}
}

func TestPages_StudentJourney(t *testing.T) {
	front := newFrontEnd(t, newDevAPI(t).URL, config.RateLimitConfig{}, nil)
	b := newBrowser(t, front.URL)

	p := b.register("Ada Lovelace", "ada@university.edu", "validpass")
	require.Equal(t, http.StatusSeeOther, p.status)
	require.Equal(t, "/dashboard", p.location)

	p = b.get("/dashboard")
	require.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "Welcome back, Ada Lovelace")
	assert.Contains(t, p.body, session.MsgRegisterOK)
	assert.Contains(t, p.body, `href="/submit"`)
	assert.NotContains(t, p.body, `href="/manage-feedback"`)

	// the toast is shown once
	p = b.get("/dashboard")
	assert.NotContains(t, p.body, session.MsgRegisterOK)

	// signed-in users skip the auth pages
	p = b.get("/login")
	assert.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/dashboard", p.location)

	p = b.post("/submit", url.Values{"title": {"Wifi"}, "category": {"Technology"}, "description": {"Drops every hour"}})
	require.Equal(t, http.StatusSeeOther, p.status)
	require.Equal(t, "/my-feedbacks", p.location)

	p = b.get("/my-feedbacks")
	require.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, handler.MsgSubmitted)
	assert.Contains(t, p.body, "Wifi")
	assert.Contains(t, p.body, "Pending")
	m := feedbackLink.FindStringSubmatch(p.body)
	require.Len(t, m, 2)

	p = b.get("/my-feedbacks?status=Resolved")
	assert.Contains(t, p.body, "No feedbacks found.")

	p = b.get("/feedback/" + m[1])
	require.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "Drops every hour")
	assert.NotContains(t, p.body, "Update Feedback")

	// admin-only pages send a student to login
	p = b.get("/manage-feedback")
	assert.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/login", p.location)

	// admin actions posted by a student are not applied
	p = b.post("/feedback/"+m[1], url.Values{"action": {"delete"}})
	assert.Equal(t, http.StatusSeeOther, p.status)
	assert.Equal(t, "/feedback/"+m[1], p.location)

	p = b.post("/submit", url.Values{"title": {""}, "category": {"Technology"}, "description": {"x"}})
	assert.Equal(t, http.StatusUnprocessableEntity, p.status)
	assert.Contains(t, p.body, handler.MsgFillAllFields)

	// logging out on a protected page lands on login
	p = b.post("/logout", url.Values{"from": {"/my-feedbacks"}})
	require.Equal(t, http.StatusSeeOther, p.status)
	require.Equal(t, "/my-feedbacks", p.location)
	p = b.get(p.location)
	assert.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/login", p.location)
	p = b.get(p.location)
	assert.Contains(t, p.body, session.MsgLoggedOut)
}

func TestPages_RegisterChecks(t *testing.T) {
	front := newFrontEnd(t, newDevAPI(t).URL, config.RateLimitConfig{}, nil)
	b := newBrowser(t, front.URL)

	p := b.post("/register", url.Values{
		"fullname": {"Ada"}, "email": {"ada@university.edu"},
		"password": {"validpass"}, "confirmPassword": {"different"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, p.status)
	assert.Contains(t, p.body, handler.MsgPasswordMismatch)
	assert.Contains(t, p.body, `value="Ada"`)

	p = b.register("Ada", "ada@university.edu", "123")
	assert.Equal(t, http.StatusUnprocessableEntity, p.status)
	assert.Contains(t, p.body, handler.MsgPasswordTooShort)

	require.Equal(t, http.StatusSeeOther, b.register("Ada", "ada@university.edu", "validpass").status)

	other := newBrowser(t, front.URL)
	p = other.register("Ada Again", "ada@university.edu", "validpass")
	assert.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "User already exists with this email")
}

func TestPages_InvalidLogin(t *testing.T) {
	front := newFrontEnd(t, newDevAPI(t).URL, config.RateLimitConfig{}, nil)
	b := newBrowser(t, front.URL)

	p := b.login("nobody@university.edu", "wrongpass")
	assert.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "Invalid credentials")
	assert.Contains(t, p.body, `value="nobody@university.edu"`)

	p = b.get("/dashboard")
	assert.Equal(t, "/login", p.location)
}

func TestPages_AdminJourney(t *testing.T) {
	front := newFrontEnd(t, newDevAPI(t).URL, config.RateLimitConfig{}, nil)

	student := newBrowser(t, front.URL)
	require.Equal(t, http.StatusSeeOther, student.register("Ada", "ada@university.edu", "validpass").status)
	require.Equal(t, http.StatusSeeOther, student.post("/submit", url.Values{
		"title": {"Broken projector"}, "category": {"Facility"}, "description": {"Room 204"},
	}).status)

	admin := newBrowser(t, front.URL)
	p := admin.login(adminEmail, adminPass)
	require.Equal(t, http.StatusSeeOther, p.status)

	p = admin.get("/dashboard")
	require.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "Admin Dashboard")
	assert.Contains(t, p.body, "Feedback by Category")

	p = admin.get("/manage-feedback")
	require.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "Broken projector")
	m := feedbackLink.FindStringSubmatch(p.body)
	require.Len(t, m, 2)
	item := "/feedback/" + m[1]

	p = admin.get(item)
	require.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "Update Feedback")
	assert.Contains(t, p.body, "ada@university.edu")

	p = admin.post(item, url.Values{"action": {"update"}, "status": {"Resolved"}, "adminResponse": {"  "}})
	assert.Equal(t, item, p.location)
	p = admin.get(p.location)
	assert.Contains(t, p.body, handler.MsgResponseRequired)

	p = admin.post(item, url.Values{"action": {"update"}, "status": {"Resolved"}, "adminResponse": {"Replaced the bulb"}})
	require.Equal(t, http.StatusSeeOther, p.status)
	require.Equal(t, "/manage-feedback", p.location)
	p = admin.get(p.location)
	assert.Contains(t, p.body, "Feedback status updated to Resolved")

	// the student sees the response
	p = student.get(item)
	assert.Contains(t, p.body, "Replaced the bulb")
	assert.Contains(t, p.body, "Resolved")

	p = admin.post(item, url.Values{"action": {"delete"}})
	require.Equal(t, "/manage-feedback", p.location)
	p = admin.get(p.location)
	assert.Contains(t, p.body, handler.MsgDeleted)
	assert.NotContains(t, p.body, "Broken projector")

	p = admin.get(item)
	assert.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/manage-feedback", p.location)
	p = admin.get(p.location)
	assert.Contains(t, p.body, "Feedback not found")

	p = admin.get("/submit")
	assert.Equal(t, "/login", p.location)
}

func TestPages_BackendDown(t *testing.T) {
	api := newDevAPI(t)
	front := newFrontEnd(t, api.URL, config.RateLimitConfig{}, nil)
	b := newBrowser(t, front.URL)
	require.Equal(t, http.StatusSeeOther, b.register("Ada", "ada@university.edu", "validpass").status)

	api.Close()
	p := b.get("/dashboard")
	require.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, handler.MsgDashboardFailed)
	assert.Contains(t, p.body, "Welcome back, Ada")
}

func TestPages_LoginRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       1,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "test:rl",
	}
	front := newFrontEnd(t, newDevAPI(t).URL, rl, rdb)
	b := newBrowser(t, front.URL)

	assert.Equal(t, http.StatusOK, b.login("a@university.edu", "wrongpass").status)
	p := b.login("a@university.edu", "wrongpass")
	assert.Equal(t, http.StatusTooManyRequests, p.status)
	assert.Contains(t, p.body, "Too many attempts")
}

// stallingAPI accepts every request and answers only once the caller has
// gone away.  arrived receives the path of each request.
func stallingAPI(t *testing.T) (*httptest.Server, <-chan string) {
	t.Helper()
	arrived := make(chan string, 4)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived <- r.Method + " " + r.URL.Path
		select {
		case <-r.Context().Done():
		case <-release:
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	return srv, arrived
}

func TestPages_AbandonedRequestRendersNothing(t *testing.T) {
	cases := []struct {
		name    string
		user    string
		method  string
		path    string
		form    url.Values
		backend string
	}{
		{
			name:    "student dashboard",
			user:    `{"id":"s1","fullname":"Ada","role":"student"}`,
			method:  http.MethodGet,
			path:    "/dashboard",
			backend: "GET /api/feedback/my-feedbacks",
		},
		{
			name:    "admin list",
			user:    `{"id":"a1","fullname":"Root","role":"admin"}`,
			method:  http.MethodGet,
			path:    "/manage-feedback",
			backend: "GET /api/feedback/all",
		},
		{
			name:    "admin delete",
			user:    `{"id":"a1","fullname":"Root","role":"admin"}`,
			method:  http.MethodPost,
			path:    "/feedback/f1",
			form:    url.Values{"action": {"delete"}},
			backend: "DELETE /api/feedback/f1",
		},
		{
			name:    "admin update",
			user:    `{"id":"a1","fullname":"Root","role":"admin"}`,
			method:  http.MethodPost,
			path:    "/feedback/f1",
			form:    url.Values{"action": {"update"}, "status": {"Resolved"}, "adminResponse": {"Done"}},
			backend: "PUT /api/feedback/f1",
		},
		{
			name:    "student submit",
			user:    `{"id":"s1","fullname":"Ada","role":"student"}`,
			method:  http.MethodPost,
			path:    "/submit",
			form:    url.Values{"title": {"Wifi"}, "category": {"Technology"}, "description": {"Slow"}},
			backend: "POST /api/feedback/submit",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api, arrived := stallingAPI(t)
			backend := storage.NewMemory()
			e := newPageServer(t, api.URL, backend, config.RateLimitConfig{}, nil)

			sid := uuid.NewString()
			scope := backend.Scope(sid)
			require.NoError(t, scope.Set(context.Background(), map[string]string{
				storage.KeyToken: "t1",
				storage.KeyUser:  tc.user,
			}))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			var body io.Reader
			if tc.form != nil {
				body = strings.NewReader(tc.form.Encode())
			}
			req := httptest.NewRequest(tc.method, tc.path, body).WithContext(ctx)
			if tc.form != nil {
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
			}
			req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: sid})

			called := make(chan string, 1)
			go func() {
				select {
				case got := <-arrived:
					called <- got
				case <-time.After(5 * time.Second):
					called <- ""
				}
				cancel()
			}()

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tc.backend, <-called)

			select {
			case got := <-arrived:
				t.Fatalf("unexpected second backend call %q", got)
			default:
			}
			assert.Zero(t, rec.Body.Len(), "nothing is rendered")
			assert.Empty(t, rec.Header().Get(echo.HeaderLocation), "nothing is redirected")
			_, queued, err := scope.Get(context.Background(), storage.KeyFlash)
			require.NoError(t, err)
			assert.False(t, queued, "no toast is queued")

			// the session itself is untouched
			tok, ok, err := scope.Get(context.Background(), storage.KeyToken)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "t1", tok)
		})
	}
}
