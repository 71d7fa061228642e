package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ZemaLabs/zema-catalog-go/internal/apperr"
	"github.com/ZemaLabs/zema-catalog-go/internal/auth"
	"github.com/ZemaLabs/zema-catalog-go/internal/model"
	"github.com/ZemaLabs/zema-catalog-go/internal/storage"
	"github.com/oklog/ulid/v2"
)

const minPasswordLength = 6

// protect requires a valid bearer token bound to an active principal. The
// loaded principal is stored in the request context.
func (m *Mux) protect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			m.writeError(w, apperr.New(apperr.Authn, "Not authorized to access this route"))
			return
		}

		adminID, err := m.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			m.writeError(w, apperr.New(apperr.Authn, "Invalid token"))
			return
		}

		admin, err := m.store.GetAdminByID(r.Context(), adminID)
		if err != nil || !admin.IsActive {
			m.writeError(w, apperr.New(apperr.Authn, "Admin not found or inactive"))
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), ctxKeyAdmin, admin)))
	}
}

// authorize requires the authenticated principal to hold one of the given
// roles. Must run inside protect.
func (m *Mux) authorize(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin := principal(r.Context())
		if admin == nil {
			m.writeError(w, apperr.New(apperr.Authn, "Not authorized to access this route"))
			return
		}
		for _, role := range roles {
			if admin.Role == role {
				next(w, r)
				return
			}
		}
		m.writeError(w, apperr.Newf(apperr.Authz, "Role %s is not authorized to access this route", admin.Role))
	}
}

// publicProfile strips everything but the fields safe to echo after
// register/login.
func publicProfile(a *model.Admin) map[string]interface{} {
	return map[string]interface{}{
		"id":    a.ID,
		"email": a.Email,
		"name":  a.Name,
		"role":  a.Role,
	}
}

// handleRegister handles POST /api/auth/register. The storage layer decides
// the first-admin promotion; a duplicate email is a 400 in keeping with the
// rest of the validation taxonomy.
func (m *Mux) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if aerr := decodeJSON(r, &req); aerr != nil {
		m.writeError(w, aerr)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" || req.Name == "" {
		m.writeError(w, apperr.New(apperr.Validation, "email, password and name are required"))
		return
	}
	if len(req.Password) < minPasswordLength {
		m.writeError(w, apperr.Newf(apperr.Validation, "password must be at least %d characters", minPasswordLength))
		return
	}
	if req.Role != "" && req.Role != model.RoleAdmin && req.Role != model.RoleSuperAdmin {
		m.writeError(w, apperr.New(apperr.Validation, "role must be admin or super_admin"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		m.writeError(w, apperr.New(apperr.Internal, "internal server error"))
		return
	}

	role := req.Role
	if role == "" {
		role = model.RoleAdmin
	}

	admin, err := m.store.CreateAdmin(r.Context(), model.Admin{
		ID:           ulid.Make().String(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			m.writeError(w, apperr.New(apperr.Validation, "Admin with this email already exists"))
			return
		}
		m.writeError(w, m.storeError(err, "admin not found"))
		return
	}

	token, err := m.tokens.Issue(admin.ID)
	if err != nil {
		m.writeError(w, apperr.New(apperr.Internal, "internal server error"))
		return
	}

	m.writeToken(w, http.StatusCreated, token, publicProfile(admin))
}

// handleLogin handles POST /api/auth/login. Unknown email and wrong password
// produce byte-identical responses so the endpoint does not leak which
// accounts exist.
func (m *Mux) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if aerr := decodeJSON(r, &req); aerr != nil {
		m.writeError(w, aerr)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		m.writeError(w, apperr.New(apperr.Validation, "Please provide an email and password"))
		return
	}

	admin, err := m.store.GetAdminByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			m.writeError(w, apperr.New(apperr.Unavailable, "service temporarily unavailable"))
			return
		}
		m.writeError(w, apperr.New(apperr.Authn, "Invalid credentials"))
		return
	}

	if !admin.IsActive {
		m.writeError(w, apperr.New(apperr.Authn, "Account is deactivated"))
		return
	}

	if !auth.CheckPassword(admin.PasswordHash, req.Password) {
		m.writeError(w, apperr.New(apperr.Authn, "Invalid credentials"))
		return
	}

	now := time.Now().UTC()
	if err := m.store.UpdateAdminLogin(r.Context(), admin.ID, now); err != nil {
		m.logger.Warn("failed to record last login", "error", err, "admin_id", admin.ID)
	}

	token, err := m.tokens.Issue(admin.ID)
	if err != nil {
		m.writeError(w, apperr.New(apperr.Internal, "internal server error"))
		return
	}

	m.writeToken(w, http.StatusOK, token, publicProfile(admin))
}

// handleMe handles GET /api/auth/me.
func (m *Mux) handleMe(w http.ResponseWriter, r *http.Request) {
	m.writeData(w, http.StatusOK, principal(r.Context()))
}

// handleUpdatePassword handles PUT /api/auth/update-password. The current
// password must be re-proven; a fresh token is issued with the response.
func (m *Mux) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req model.UpdatePasswordRequest
	if aerr := decodeJSON(r, &req); aerr != nil {
		m.writeError(w, aerr)
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		m.writeError(w, apperr.New(apperr.Validation, "currentPassword and newPassword are required"))
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		m.writeError(w, apperr.Newf(apperr.Validation, "password must be at least %d characters", minPasswordLength))
		return
	}

	admin := principal(r.Context())
	if !auth.CheckPassword(admin.PasswordHash, req.CurrentPassword) {
		m.writeError(w, apperr.New(apperr.Authn, "Current password is incorrect"))
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		m.writeError(w, apperr.New(apperr.Internal, "internal server error"))
		return
	}

	if err := m.store.UpdateAdminPassword(r.Context(), admin.ID, hash); err != nil {
		m.writeError(w, m.storeError(err, "admin not found"))
		return
	}

	token, err := m.tokens.Issue(admin.ID)
	if err != nil {
		m.writeError(w, apperr.New(apperr.Internal, "internal server error"))
		return
	}

	m.writeToken(w, http.StatusOK, token, publicProfile(admin))
}
