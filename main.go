package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	_ "github.com/mattn/go-sqlite3"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"esygrab/internal/identity"
	"esygrab/internal/models"
	"esygrab/internal/session"
)

type App struct {
	DB          *sql.DB
	CookieStore *sessions.CookieStore
	Sessions    *session.Manager
	Identity    *identity.Client
	OAuthConfig *oauth2.Config
	Config      *Config

	trackersMu sync.Mutex
	trackers   map[string]*session.ActivityTracker
}

func main() {
	config, err := LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	InitializeLogger(config)

	cookieStore := sessions.NewCookieStore(config.SessionSecret)
	cookieStore.MaxAge(config.CookieMaxAge)
	cookieStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   config.CookieMaxAge,
		HttpOnly: true,
		Secure:   config.Environment == "production",
		SameSite: http.SameSiteLaxMode, // Lax to allow OAuth redirects
	}

	app := &App{
		Config:      config,
		CookieStore: cookieStore,
		Identity:    identity.NewClient(config.AuthBaseURL, config.AuthAPIKey, []byte(config.AuthJWTSecret)),
		trackers:    make(map[string]*session.ActivityTracker),
		OAuthConfig: &oauth2.Config{
			ClientID:     config.GoogleClientID,
			ClientSecret: config.GoogleClientSecret,
			RedirectURL:  config.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
			},
			Endpoint: google.Endpoint,
		},
	}

	app.DB, err = sql.Open("sqlite3", config.DatabasePath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}

	app.DB.SetMaxOpenConns(25)
	app.DB.SetMaxIdleConns(25)
	app.DB.SetConnMaxLifetime(5 * time.Minute)
	defer app.DB.Close()

	if err := app.initDatabase(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	store, err := app.newSessionStore()
	if err != nil {
		log.Fatal("Failed to initialize session store:", err)
	}
	app.Sessions = session.NewManager(store)

	app.Identity.OnAuthStateChange(func(event identity.AuthEvent, user *models.User) {
		fields := map[string]interface{}{"event": string(event)}
		if user != nil {
			fields["user_id"] = user.ID
		}
		AppLogger.WithFields(fields).Info("Auth state changed")
	})

	authLimiter := NewRateLimiter(5, 10) // 5 requests per minute on auth endpoints
	authLimiter.StartCleanupRoutine()
	rateLimited := app.RateLimitMiddleware(authLimiter)

	r := mux.NewRouter()

	r.Use(app.RecoveryMiddleware)
	r.Use(app.LoggingMiddleware)
	r.Use(app.DeviceMiddleware)

	r.HandleFunc("/", app.RoleRoutingMiddleware(app.handleHome)).Methods("GET")
	r.HandleFunc("/login", app.handleLoginPage).Methods("GET")
	r.HandleFunc("/logout", app.handleLogout).Methods("GET")

	r.HandleFunc("/auth/login", rateLimited(app.handlePasswordLogin)).Methods("POST")
	r.HandleFunc("/auth/otp/send", rateLimited(app.handleSendOTP)).Methods("POST")
	r.HandleFunc("/auth/otp/verify", rateLimited(app.handleVerifyOTP)).Methods("POST")
	r.HandleFunc("/auth/google", rateLimited(app.handleGoogleLogin)).Methods("GET")
	r.HandleFunc("/auth/callback", rateLimited(app.handleAuthCallback)).Methods("GET")

	r.HandleFunc("/admin/dashboard",
		app.AuthMiddleware(app.RoleRoutingMiddleware(app.handleAdminDashboard))).Methods("GET")
	r.HandleFunc("/delivery-partner/dashboard",
		app.AuthMiddleware(app.RoleRoutingMiddleware(app.handleDeliveryDashboard))).Methods("GET")

	r.HandleFunc("/api/session", app.handleSessionAPI).Methods("GET")

	superAdminOnly := func(h http.HandlerFunc) http.HandlerFunc {
		return app.AuthMiddleware(app.RequireRoleMiddleware(func(role models.Role) bool {
			return role == models.RoleSuperAdmin
		}, h))
	}
	r.HandleFunc("/api/admin/roles", superAdminOnly(app.handleListRoleGrants)).Methods("GET")
	r.HandleFunc("/api/admin/roles", superAdminOnly(app.CSRFMiddleware(app.handleGrantRole))).Methods("POST")
	r.HandleFunc("/api/admin/roles", superAdminOnly(app.CSRFMiddleware(app.handleRevokeRole))).Methods("DELETE")

	fmt.Printf("Server starting on :%s\n", config.Port)
	log.Fatal(http.ListenAndServe(":"+config.Port, r))
}

// newSessionStore picks the role-session backend: Redis when configured
// (shared across instances), otherwise the local sqlite file.
func (app *App) newSessionStore() (session.Store, error) {
	if app.Config.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     app.Config.RedisAddr,
			Password: app.Config.RedisPassword,
			DB:       0,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %v", err)
		}

		log.Printf("Using redis session store at %s", app.Config.RedisAddr)
		return session.NewRedisStore(client), nil
	}

	store, err := session.NewSQLiteStore(app.DB)
	if err != nil {
		return nil, err
	}
	store.StartCleanupRoutine(context.Background(), time.Hour)
	return store, nil
}
