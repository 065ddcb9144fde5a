package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"noteserver/internal/auth"
	"noteserver/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Auth    *service.AuthService
	Tokens  *service.TokenService
	Notes   *service.NotesService
	Profile *service.ProfileService

	SessionTokens *auth.TokenIssuer
	CookieSecure  bool
	SessionTTL    time.Duration
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := &api{
		logger:       logger,
		isProd:       opts.IsProd,
		dbPing:       opts.DBPing,
		authSvc:      opts.Auth,
		tokenSvc:     opts.Tokens,
		notesSvc:     opts.Notes,
		profileSvc:   opts.Profile,
		tokens:       opts.SessionTokens,
		cookieSecure: opts.CookieSecure,
		sessionTTL:   opts.SessionTTL,
		limiter:      newAttemptLimiter(5*time.Minute, 10),
	}

	publicMux := http.NewServeMux()
	apiMux := http.NewServeMux()

	publicMux.HandleFunc("GET /healthz", api.handleHealthz)

	// Landing endpoints for the links sent by email.
	publicMux.HandleFunc("GET /verifyRegistration", api.handleVerifyRegistration)
	publicMux.HandleFunc("GET /verifyResetPassword", api.handleVerifyResetPassword)

	apiMux.HandleFunc("POST /v1/auth/register", api.handleAuthRegister)
	apiMux.HandleFunc("POST /v1/auth/login", api.handleAuthLogin)
	apiMux.HandleFunc("POST /v1/auth/logout", api.handleAuthLogout)
	apiMux.HandleFunc("POST /v1/auth/resendVerification", api.handleResendVerification)
	apiMux.HandleFunc("POST /v1/auth/forgotPassword", api.handleForgotPassword)
	apiMux.HandleFunc("POST /v1/auth/resetPassword", api.handleResetPassword)
	apiMux.HandleFunc("GET /v1/auth/verifyRegistration", api.handleVerifyRegistration)
	apiMux.HandleFunc("GET /v1/auth/verifyResetPassword", api.handleVerifyResetPassword)

	apiMux.HandleFunc("GET /v1/users/me", api.requireAuth(api.handleUsersMe))
	apiMux.HandleFunc("PATCH /v1/users/me", api.requireAuth(api.handleUsersMeUpdate))
	apiMux.HandleFunc("POST /v1/users/me/password", api.requireAuth(api.handleUsersMePassword))
	apiMux.HandleFunc("DELETE /v1/users/me", api.requireAuth(api.handleUsersMeDelete))

	if api.notesSvc != nil {
		apiMux.HandleFunc("POST /v1/notes", api.requireAuth(api.handleNotesCreate))
		apiMux.HandleFunc("GET /v1/notes", api.requireAuth(api.handleNotesList))
		apiMux.HandleFunc("GET /v1/notes/{id}", api.requireAuth(api.handleNotesGet))
		apiMux.HandleFunc("PUT /v1/notes/{id}", api.requireAuth(api.handleNotesUpdate))
		apiMux.HandleFunc("DELETE /v1/notes/{id}", api.requireAuth(api.handleNotesDelete))
	}

	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := apiMux.Handler(r)
		if pattern == "" {
			handleV1NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/v1" {
			apiHandler.ServeHTTP(w, r)
			return
		}
		publicMux.ServeHTTP(w, r)
	})

	var h http.Handler = root
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

func handleV1NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc    *service.AuthService
	tokenSvc   *service.TokenService
	notesSvc   *service.NotesService
	profileSvc *service.ProfileService

	tokens       *auth.TokenIssuer
	cookieSecure bool
	sessionTTL   time.Duration

	limiter *attemptLimiter
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
