package httpapi

import (
	"net/http"
	"strings"

	"noteserver/internal/auth"
	"noteserver/internal/domain"
)

func (a *api) handleUsersMe(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	writeUser(w, http.StatusOK, u)
}

type updateProfileRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (a *api) handleUsersMeUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	// Absent fields keep their current value.
	email := normalizeEmail(req.Email)
	if email == "" {
		email = u.Email
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = u.Username
	}

	fields := map[string]string{}
	if !validEmail(email) {
		fields["email"] = "must be a valid email"
	}
	if !validUsername(username) {
		fields["username"] = "must be 3-24 chars [A-Za-z0-9_]"
	}
	if len(fields) > 0 {
		WriteDomainError(w, domain.NewValidationError(fields))
		return
	}

	updated, err := a.profileSvc.UpdateProfile(r.Context(), u.ID, email, username)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	// A changed email invalidates the sub claim of the current token.
	if updated.Email != u.Email {
		token, err := a.tokens.Issue(updated.Email, updated.Roles)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		auth.SetSessionCookie(w, token, a.sessionTTL, a.cookieSecure)
	}

	writeUser(w, http.StatusOK, updated)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (a *api) handleUsersMePassword(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	if req.CurrentPassword == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"current_password": "required"}))
		return
	}
	if !validPassword(req.NewPassword) {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"new_password": "must be 12-128 characters"}))
		return
	}

	if err := a.profileSvc.ChangePassword(r.Context(), u.Email, req.CurrentPassword, req.NewPassword); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleUsersMeDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if err := a.profileSvc.DeleteAccount(r.Context(), u.ID); err != nil {
		WriteDomainError(w, err)
		return
	}

	auth.ClearSessionCookie(w, a.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}
