package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/playersync/internal/api/handler"
	"github.com/mcoot/playersync/internal/api/middleware"
	httpmw "github.com/mcoot/playersync/internal/middleware"
	"github.com/mcoot/playersync/internal/services/auth"
	"github.com/mcoot/playersync/internal/services/progression"
	"github.com/mcoot/playersync/internal/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Auth        *auth.Controller
	Progression *progression.Synchronizer
	Hub         *sse.Hub
	// Credentials receives sign-in credentials from the request body (optional)
	Credentials handler.CredentialSetter
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	sessionHandler := handler.NewSessionHandler(cfg.Auth, cfg.Credentials)
	progressionHandler := handler.NewProgressionHandler(cfg.Progression)
	eventsHandler := handler.NewEventsHandler(cfg.Hub)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(httpmw.Logging(cfg.Logger))

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/events", eventsHandler.Stream).Methods(http.MethodGet)

	// Session routes enforce their own state transitions
	api.HandleFunc("/session", sessionHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/session/signin", sessionHandler.SignIn).Methods(http.MethodPost)
	api.HandleFunc("/session/signout", sessionHandler.SignOut).Methods(http.MethodPost)
	api.HandleFunc("/session/name", sessionHandler.UpdateName).Methods(http.MethodPut)
	api.HandleFunc("/session/account", sessionHandler.DeleteAccount).Methods(http.MethodDelete)

	api.HandleFunc("/progression", progressionHandler.Get).Methods(http.MethodGet)

	// Progression mutations need a signed-in player
	mutations := api.PathPrefix("/progression").Subrouter()
	mutations.Use(middleware.RequireSession(cfg.Auth))
	mutations.HandleFunc("/experience", progressionHandler.AddExperience).Methods(http.MethodPost)
	mutations.HandleFunc("/skills/{stat}", progressionHandler.UseSkillPoint).Methods(http.MethodPost)
	mutations.HandleFunc("/name", progressionHandler.UpdateName).Methods(http.MethodPut)
	mutations.HandleFunc("/reset", progressionHandler.Reset).Methods(http.MethodPost)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
