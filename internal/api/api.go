// Package api is the dashboard and submission HTTP surface: Discord OAuth
// login, JWT-protected moderation endpoints and the secondary verification
// hook.
package api

import (
	"log/slog"
	"net/http"

	"github.com/fazendarp/fazendabot/internal/config"
	"github.com/fazendarp/fazendabot/internal/store"
	"github.com/fazendarp/fazendabot/internal/submission"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/oauth2"
)

type API struct {
	router      *mux.Router
	store       *store.Store
	builder     *submission.Builder
	eco         *config.Economy
	config      *config.Config
	oauthConfig *oauth2.Config
	jwtSecret   []byte
	log         *slog.Logger
}

func New(cfg *config.Config, eco *config.Economy, st *store.Store, builder *submission.Builder, log *slog.Logger) *API {
	api := &API{
		router:    mux.NewRouter(),
		store:     st,
		builder:   builder,
		eco:       eco,
		config:    cfg,
		jwtSecret: []byte(cfg.JWTSecret),
		log:       log,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	a.router.Use(a.loggingMiddleware)

	a.router.HandleFunc("/healthz", a.handleHealth).Methods("GET")

	// Auth endpoints
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	// Browser-facing callback, redirects to the dashboard.
	a.router.HandleFunc("/auth/callback", a.handleAuthRedirect).Methods("GET")

	// Secondary verification hook, authorized by shared secret instead of JWT.
	a.router.HandleFunc("/verify/{receiptId}", a.handleVerifyHook).Methods("POST")

	// Protected endpoints
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/submissions", a.handleSubmit).Methods("POST")
	protected.HandleFunc("/players/{name}/receipts", a.handlePlayerReceipts).Methods("GET")
	protected.HandleFunc("/players/{name}/summary", a.handlePlayerSummary).Methods("GET")
	protected.HandleFunc("/receipts", a.handleListReceipts).Methods("GET")
	protected.HandleFunc("/receipts/{id}", a.handleEditReceipt).Methods("PATCH")
	protected.HandleFunc("/receipts/{id}", a.handleDeleteReceipt).Methods("DELETE")
}

func (a *API) Start() error {
	// Setup CORS - allow all origins for development, restrict in production
	// Note: When AllowedOrigins is "*", AllowCredentials must be false for security
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Verify-Secret"},
		AllowCredentials: false,
	}

	handler := cors.New(corsOptions).Handler(a.router)

	a.log.Info("api server listening", "bind", a.config.WebBind)
	return http.ListenAndServe(a.config.WebBind, handler)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
