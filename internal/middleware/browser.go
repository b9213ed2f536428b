package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Trandsoulz/student-connect-client/internal/apiclient"
	"github.com/Trandsoulz/student-connect-client/internal/auth"
	"github.com/Trandsoulz/student-connect-client/internal/feedback"
	"github.com/Trandsoulz/student-connect-client/internal/notify"
	"github.com/Trandsoulz/student-connect-client/internal/session"
	"github.com/Trandsoulz/student-connect-client/internal/storage"
)

// SessionCookie names the cookie holding the browser session id.
const SessionCookie = "sc_session"

const browserKey = "browser"

// Browser is everything a page handler needs for the current browser
// session.  It lives for one request.
type Browser struct {
	ID       string
	Store    *session.Store
	Auth     *auth.Service
	Feedback *feedback.Service
	Flash    *notify.Flash
	Notifier notify.Notifier
}

// Sessions builds a Browser per request from the session cookie.
type Sessions struct {
	Backend      storage.Backend
	API          *apiclient.Client
	Publisher    *notify.Publisher // nil disables queue fan-out
	CookieSecure bool
	TTL          time.Duration
	Log          *zap.Logger
}

// Middleware resolves (or mints) the browser session id, rehydrates the
// session store and stores the Browser in the echo context.  The cookie is
// sent when minted and again when the request signs a user in, so its
// Max-Age counts from the last signin rather than the first visit.
func (s *Sessions) Middleware() echo.MiddlewareFunc {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, fresh := sessionID(c)
			issued := false
			issue := func() {
				if issued {
					return
				}
				issued = true
				c.SetCookie(&http.Cookie{
					Name:     SessionCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   int(s.TTL / time.Second),
					HttpOnly: true,
					Secure:   s.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			if fresh {
				issue()
			}

			ctx := c.Request().Context()
			scope := s.Backend.Scope(id)
			authSvc := auth.NewService(s.API, scope, log)
			flash := notify.NewFlash(scope, log)

			var notifier notify.Notifier = flash
			if s.Publisher != nil {
				userID := ""
				if u, ok := authSvc.StoredUser(ctx); ok {
					userID = u.ID
				}
				notifier = notify.Multi(flash, s.Publisher.ForSession(id, userID))
			}

			store := session.New(ctx, authSvc, notifier, session.WithLogger(log))
			// A completed signin or signup restarts the cookie lifetime along
			// with the storage TTL it just refreshed.
			store.Subscribe(func(st session.State) {
				if st.Authenticated && !st.Loading {
					issue()
				}
			})

			b := &Browser{
				ID:       id,
				Store:    store,
				Auth:     authSvc,
				Feedback: feedback.NewService(authSvc.API()),
				Flash:    flash,
				Notifier: notifier,
			}
			c.Set(browserKey, b)
			return next(c)
		}
	}
}

// sessionID returns the cookie's id, or a new one when the cookie is absent
// or not a v4 UUID.
func sessionID(c echo.Context) (string, bool) {
	if ck, err := c.Cookie(SessionCookie); err == nil {
		if u, err := uuid.Parse(ck.Value); err == nil && u.Version() == 4 {
			return u.String(), false
		}
	}
	return uuid.NewString(), true
}

// CurrentBrowser returns the Browser set by Sessions.Middleware, or nil.
func CurrentBrowser(c echo.Context) *Browser {
	b, _ := c.Get(browserKey).(*Browser)
	return b
}
