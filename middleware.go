package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"esygrab/internal/models"
	"esygrab/internal/session"
	"esygrab/internal/utils"
)

// AuthCookieName is the gorilla cookie session carrying the active role
// pointer and CSRF token. The role session record itself lives in the
// session manager's store, not in the cookie.
const AuthCookieName = "esygrab-auth"

func (app *App) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap the response writer to capture the status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: 200}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		AppLogger.WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"duration_ms": duration.Milliseconds(),
			"status_code": wrapper.statusCode,
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
		}).Info("HTTP request completed")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (app *App) RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				AppLogger.WithFields(map[string]interface{}{
					"method":      r.Method,
					"path":        r.URL.Path,
					"panic":       fmt.Sprintf("%v", err),
					"remote_addr": r.RemoteAddr,
				}).Error("Panic recovered in HTTP handler")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// DeviceMiddleware issues a device identifier cookie on first contact and
// records the sighting.
func (app *App) DeviceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var deviceID string
		if cookie, err := r.Cookie("esygrab_device_id"); err == nil && cookie.Value != "" {
			deviceID = cookie.Value
		} else {
			deviceID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     "esygrab_device_id",
				Value:    deviceID,
				Path:     "/",
				MaxAge:   365 * 24 * 60 * 60,
				HttpOnly: true,
				Secure:   app.Config.Environment == "production",
				SameSite: http.SameSiteLaxMode,
			})
		}

		userID, _ := utils.GetUserID(r)
		app.TouchDevice(deviceID, userID)

		ctx := context.WithValue(r.Context(), utils.DeviceIDKey, deviceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthMiddleware resolves the caller's role session. The cookie names the
// active role; the session manager holds the actual record and handles
// expiry. Authentication is strictly cookie-bound: a request without a
// cookie-named role has no session, whatever the store holds for other
// clients. An unresolvable session sends the caller to /login.
func (app *App) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookieSession, err := app.CookieStore.Get(r, AuthCookieName)
		if err != nil {
			AppLogger.WithError(err).WithField("path", r.URL.Path).Warn("Corrupted auth cookie, redirecting to login")
			http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
			return
		}

		rec := app.resolveSession(r, cookieSession.Values["active_role"])
		if rec == nil {
			http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
			return
		}

		// Each authenticated request counts as interaction.
		app.touchActivity(r.Context(), rec.User.ID)

		ctx := utils.WithUser(r.Context(), rec.User.ID, rec.User.Email, rec.Role)
		if csrf, ok := cookieSession.Values["csrf_token"].(string); ok {
			ctx = context.WithValue(ctx, utils.CSRFTokenKey, csrf)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// resolveSession validates the cookie's role hint against the store. No
// hint, an unknown role, or a mismatched record all resolve to nil; the
// manager's defensive scan is never used to authenticate a request.
func (app *App) resolveSession(r *http.Request, roleHint interface{}) *session.Record {
	raw, ok := roleHint.(string)
	if !ok || raw == "" {
		return nil
	}
	role, err := models.ParseRole(raw)
	if err != nil {
		return nil
	}
	return app.Sessions.ValidateRoleSession(r.Context(), role)
}

// sessionFromCookie resolves the role session bound to the request's auth
// cookie, or nil for anonymous callers.
func (app *App) sessionFromCookie(r *http.Request) *session.Record {
	cookieSession, err := app.CookieStore.Get(r, AuthCookieName)
	if err != nil {
		return nil
	}
	return app.resolveSession(r, cookieSession.Values["active_role"])
}

// RoleRoutingMiddleware forces each role onto its own area of the site.
// Routing is keyed off the caller's own cookie-bound session; anonymous
// requests pass through untouched.
func (app *App) RoleRoutingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rec := app.sessionFromCookie(r); rec != nil {
			if session.EnforceRouteForRole(w, r, rec.Role) {
				return
			}
		}
		next.ServeHTTP(w, r)
	}
}

// RequireRoleMiddleware rejects requests whose authenticated role fails
// the predicate. Runs after AuthMiddleware.
func (app *App) RequireRoleMiddleware(allowed func(models.Role) bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.RequireRole(w, r, allowed); !ok {
			return
		}
		next.ServeHTTP(w, r)
	}
}

func (app *App) CSRFMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" || r.Method == "PUT" || r.Method == "DELETE" {
			expectedToken, ok := utils.GetCSRFToken(r)
			if !ok {
				http.Error(w, "CSRF token not found in session", http.StatusForbidden)
				return
			}

			var providedToken string
			if r.Header.Get("Content-Type") == "application/json" {
				providedToken = r.Header.Get("X-CSRF-Token")
			} else {
				providedToken = r.FormValue("csrf_token")
			}

			if providedToken != expectedToken {
				AppLogger.WithField("path", r.URL.Path).Warn("CSRF token mismatch")
				http.Error(w, "CSRF token mismatch", http.StatusForbidden)
				return
			}
		}

		next.ServeHTTP(w, r)
	}
}
