package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"esygrab/internal/identity"
	"esygrab/internal/models"
	"esygrab/internal/session"
	"esygrab/internal/utils"
)

// startTracker begins activity tracking for a signed-in user, replacing
// any tracker left over from a previous session.
func (app *App) startTracker(userID string, role models.Role) {
	app.trackersMu.Lock()
	defer app.trackersMu.Unlock()

	if old, ok := app.trackers[userID]; ok {
		old.Stop()
	}

	tracker := session.NewActivityTracker(app.Sessions, app.Identity, role, userID)
	tracker.OnSessionEnd(func() { app.removeTracker(userID, tracker) })
	tracker.Start()
	app.trackers[userID] = tracker
}

// removeTracker drops the registry entry for a tracker that stopped
// itself after its session lapsed. A newer tracker under the same user is
// left alone.
func (app *App) removeTracker(userID string, tracker *session.ActivityTracker) {
	app.trackersMu.Lock()
	defer app.trackersMu.Unlock()

	if app.trackers[userID] == tracker {
		delete(app.trackers, userID)
	}
}

// stopTracker ends activity tracking on sign-out.
func (app *App) stopTracker(userID string) {
	app.trackersMu.Lock()
	defer app.trackersMu.Unlock()

	if tracker, ok := app.trackers[userID]; ok {
		tracker.Stop()
		delete(app.trackers, userID)
	}
}

// touchActivity forwards an interaction signal to the user's tracker.
func (app *App) touchActivity(ctx context.Context, userID string) {
	app.trackersMu.Lock()
	tracker, ok := app.trackers[userID]
	app.trackersMu.Unlock()

	if ok {
		tracker.Touch(ctx)
	}
}

// completeSignIn finishes every sign-in path: resolve the effective role,
// persist the role session (clearing all others), start activity
// tracking, and point the auth cookie at the active role.
func (app *App) completeSignIn(w http.ResponseWriter, r *http.Request, user *models.User, token *identity.Token) (models.Role, error) {
	role := app.ResolveRole(user)
	user.Role = role

	if err := app.UpsertUser(user); err != nil {
		log.Printf("Failed to record user %s: %v", user.Email, err)
		// Sign-in proceeds; the users table is bookkeeping, not auth.
	}

	accessToken := ""
	if token != nil {
		accessToken = token.AccessToken
	}
	app.Sessions.StoreSessionWithToken(r.Context(), *user, role, accessToken)

	app.startTracker(user.ID, role)

	cookieSession, err := app.CookieStore.Get(r, AuthCookieName)
	if err != nil {
		// Corrupted cookie, start a fresh one
		cookieSession, err = app.CookieStore.New(r, AuthCookieName)
		if err != nil {
			return role, err
		}
	}

	for k := range cookieSession.Values {
		delete(cookieSession.Values, k)
	}

	csrfToken, err := GenerateCSRFToken()
	if err != nil {
		return role, err
	}

	cookieSession.Values["active_role"] = string(role)
	cookieSession.Values["csrf_token"] = csrfToken
	cookieSession.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   app.Config.CookieMaxAge,
		HttpOnly: true,
		Secure:   app.Config.Environment == "production",
		SameSite: http.SameSiteLaxMode,
	}

	if err := cookieSession.Save(r, w); err != nil {
		return role, err
	}

	log.Printf("Sign-in completed for %s with role %s", user.Email, role)
	return role, nil
}

type passwordLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handlePasswordLogin authenticates with email/password against the
// identity provider.
func (app *App) handlePasswordLogin(w http.ResponseWriter, r *http.Request) {
	var req passwordLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequestError(w, "Invalid request body")
		return
	}

	v := NewValidator()
	v.ValidateRequired(req.Email, "email").
		ValidateEmailField(req.Email, "email").
		ValidateRequired(req.Password, "password")
	if v.HasErrors() {
		utils.ValidationError(w, v.ErrorString())
		return
	}

	token, user, err := app.Identity.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Printf("Password sign-in failed for %s: %v", req.Email, err)
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	role, err := app.completeSignIn(w, r, user, token)
	if err != nil {
		log.Printf("Failed to complete sign-in: %v", err)
		utils.InternalServerError(w, "Session error")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{
		"redirect": session.DashboardPath(role),
	})
}

type otpSendRequest struct {
	Phone string `json:"phone"`
}

// handleSendOTP asks the provider to text a one-time code.
func (app *App) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req otpSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequestError(w, "Invalid request body")
		return
	}

	v := NewValidator()
	v.ValidateRequired(req.Phone, "phone").ValidatePhoneField(req.Phone, "phone")
	if v.HasErrors() {
		utils.ValidationError(w, v.ErrorString())
		return
	}

	if err := app.Identity.SendOTP(r.Context(), req.Phone); err != nil {
		log.Printf("Failed to send OTP to %s: %v", req.Phone, err)
		utils.RespondWithError(w, http.StatusBadGateway, "Failed to send code")
		return
	}

	utils.RespondWithSuccess(w, nil, "Code sent")
}

type otpVerifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// handleVerifyOTP exchanges a one-time code for a signed-in session.
func (app *App) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequestError(w, "Invalid request body")
		return
	}

	v := NewValidator()
	v.ValidateRequired(req.Phone, "phone").
		ValidatePhoneField(req.Phone, "phone").
		ValidateOTPField(req.Code, "code")
	if v.HasErrors() {
		utils.ValidationError(w, v.ErrorString())
		return
	}

	token, user, err := app.Identity.VerifyOTP(r.Context(), req.Phone, req.Code)
	if err != nil {
		log.Printf("OTP verification failed for %s: %v", req.Phone, err)
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired code")
		return
	}

	role, err := app.completeSignIn(w, r, user, token)
	if err != nil {
		log.Printf("Failed to complete sign-in: %v", err)
		utils.InternalServerError(w, "Session error")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{
		"redirect": session.DashboardPath(role),
	})
}

// handleGoogleLogin starts the Google OAuth flow.
func (app *App) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := GenerateSecureToken(16)
	if err != nil {
		log.Printf("Failed to generate state: %v", err)
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	cookieSession, err := app.CookieStore.Get(r, AuthCookieName)
	if err != nil {
		log.Printf("Failed to get session, creating new one: %v", err)
		cookieSession, err = app.CookieStore.New(r, AuthCookieName)
		if err != nil {
			log.Printf("Failed to create new session: %v", err)
			http.Error(w, "Session error", http.StatusInternalServerError)
			return
		}
	}

	// Start the flow from a clean cookie
	for k := range cookieSession.Values {
		delete(cookieSession.Values, k)
	}
	cookieSession.Values["state"] = state
	cookieSession.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   app.Config.CookieMaxAge,
		HttpOnly: true,
		Secure:   app.Config.Environment == "production",
		SameSite: http.SameSiteLaxMode, // Lax so the OAuth redirect carries the cookie
	}

	if err := cookieSession.Save(r, w); err != nil {
		log.Printf("Failed to save session: %v", err)
		http.Error(w, "Session error", http.StatusInternalServerError)
		return
	}

	url := app.OAuthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "select_account"))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// handleAuthCallback finishes the Google OAuth flow.
func (app *App) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	cookieSession, err := app.CookieStore.Get(r, AuthCookieName)
	if err != nil {
		log.Printf("Failed to get session in callback: %v", err)
		http.Error(w, "Session error - please try logging in again", http.StatusBadRequest)
		return
	}

	state, ok := cookieSession.Values["state"].(string)
	if !ok || state == "" {
		http.Error(w, "Invalid state parameter - please try logging in again", http.StatusBadRequest)
		return
	}

	if state != r.URL.Query().Get("state") {
		log.Printf("State mismatch in OAuth callback")
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Code not found", http.StatusBadRequest)
		return
	}

	token, err := app.OAuthConfig.Exchange(r.Context(), code)
	if err != nil {
		log.Printf("Failed to exchange token: %v", err)
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}

	client := app.OAuthConfig.Client(r.Context(), token)
	oauth2Service, err := oauth2api.NewService(r.Context(), option.WithHTTPClient(client))
	if err != nil {
		log.Printf("Failed to create OAuth2 service: %v", err)
		http.Error(w, "Failed to create OAuth2 service", http.StatusInternalServerError)
		return
	}

	userInfo, err := oauth2Service.Userinfo.Get().Do()
	if err != nil {
		log.Printf("Failed to get user info: %v", err)
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	user := &models.User{
		ID:         "google:" + userInfo.Id,
		Email:      userInfo.Email,
		Role:       models.RoleCustomer,
		IsVerified: userInfo.VerifiedEmail != nil && *userInfo.VerifiedEmail,
	}

	role, err := app.completeSignIn(w, r, user, &identity.Token{AccessToken: token.AccessToken})
	if err != nil {
		log.Printf("Failed to complete sign-in: %v", err)
		http.Error(w, "Session error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, session.DashboardPath(role), http.StatusTemporaryRedirect)
}

// handleLogout signs out everywhere: best-effort provider revocation,
// tracker shutdown, role-session purge, cookie removal. Only a caller
// whose cookie binds to a valid role session can end it; anonymous
// callers just get their cookie cleared.
func (app *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if rec := app.sessionFromCookie(r); rec != nil {
		if rec.Token != "" {
			if err := app.Identity.SignOut(r.Context(), rec.Token); err != nil {
				log.Printf("Provider sign-out failed: %v", err)
			}
		}
		app.stopTracker(rec.User.ID)
		app.Sessions.ClearAllSessions(r.Context())
	}

	cookieSession, err := app.CookieStore.Get(r, AuthCookieName)
	if err != nil {
		log.Printf("Failed to get session during logout: %v", err)
	}
	if cookieSession != nil {
		for k := range cookieSession.Values {
			delete(cookieSession.Values, k)
		}
		cookieSession.Options.MaxAge = -1
		cookieSession.Save(r, w)
	}

	// Clear the cookie manually too, in case session handling failed
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   app.Config.Environment == "production",
		SameSite: http.SameSiteLaxMode,
	})

	log.Printf("User logged out successfully")
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}
