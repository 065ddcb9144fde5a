package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"noteserver/internal/auth"
	"noteserver/internal/domain"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *api) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	req.Email = normalizeEmail(req.Email)
	req.Username = strings.TrimSpace(req.Username)

	fields := map[string]string{}
	if !validEmail(req.Email) {
		fields["email"] = "must be a valid email"
	}
	if !validUsername(req.Username) {
		fields["username"] = "must be 3-24 chars [A-Za-z0-9_]"
	}
	if !validPassword(req.Password) {
		fields["password"] = "must be 12-128 characters"
	}
	if len(fields) > 0 {
		WriteDomainError(w, domain.NewValidationError(fields))
		return
	}

	u, err := a.authSvc.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	writeUser(w, http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *api) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"email": "required", "password": "required"}))
		return
	}

	now := time.Now()
	ip := clientIP(r)
	if !a.limiter.Allow("ip:"+ip, now) || !a.limiter.Allow("email:"+req.Email, now) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
		return
	}

	u, token, err := a.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	auth.SetSessionCookie(w, token, a.sessionTTL, a.cookieSecure)
	writeUser(w, http.StatusOK, u)
}

func (a *api) handleAuthLogout(w http.ResponseWriter, _ *http.Request) {
	// Sessions are stateless; logout just discards the cookie.
	auth.ClearSessionCookie(w, a.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

// handleVerifyRegistration consumes the verification token from the emailed
// link and enables the account.
func (a *api) handleVerifyRegistration(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"token": "required"}))
		return
	}

	if _, err := a.tokenSvc.ConfirmRegistration(r.Context(), token); err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

type resendVerificationRequest struct {
	Email string `json:"email"`
}

func (a *api) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendVerificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	email := normalizeEmail(req.Email)
	if !validEmail(email) {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"email": "must be a valid email"}))
		return
	}

	now := time.Now()
	if !a.limiter.Allow("resend:ip:"+clientIP(r), now) || !a.limiter.Allow("resend:email:"+email, now) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
		return
	}

	if err := a.authSvc.ResendVerification(r.Context(), email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Do not reveal whether the address is registered.
			w.WriteHeader(http.StatusNoContent)
			return
		}
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (a *api) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	email := normalizeEmail(req.Email)
	if !validEmail(email) {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"email": "must be a valid email"}))
		return
	}

	now := time.Now()
	if !a.limiter.Allow("forgot:ip:"+clientIP(r), now) || !a.limiter.Allow("forgot:email:"+email, now) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
		return
	}

	if err := a.authSvc.RequestPasswordReset(r.Context(), email); err != nil {
		// Unknown and unverified addresses get the same 204 as a real
		// request; channel pressure is the one error worth surfacing.
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUserDisabled) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleVerifyResetPassword validates a reset token without consuming it, so
// the client can show the new-password form only for live tokens.
func (a *api) handleVerifyResetPassword(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"token": "required"}))
		return
	}

	if err := a.tokenSvc.CheckResetToken(r.Context(), token); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "valid"})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (a *api) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	req.Token = strings.TrimSpace(req.Token)
	fields := map[string]string{}
	if req.Token == "" {
		fields["token"] = "required"
	}
	if !validPassword(req.Password) {
		fields["password"] = "must be 12-128 characters"
	}
	if len(fields) > 0 {
		WriteDomainError(w, domain.NewValidationError(fields))
		return
	}

	if err := a.tokenSvc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

func writeUser(w http.ResponseWriter, status int, u domain.User) {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	WriteJSON(w, status, userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Roles:     roles,
		Enabled:   u.Enabled,
		CreatedAt: u.CreatedAt,
	})
}
