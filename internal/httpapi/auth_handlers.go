package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/JasonKing5/ifs/internal/audit"
	"github.com/JasonKing5/ifs/internal/auth"
	"github.com/JasonKing5/ifs/internal/mail"
	"github.com/JasonKing5/ifs/internal/obs"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type registerResponse struct {
	envelope
	User  auth.PublicUser `json:"user"`
	Roles []string        `json:"roles"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	envelope
	User             auth.PublicUser `json:"user"`
	Roles            []string        `json:"roles"`
	Permissions      []string        `json:"permissions"`
	AccessToken      string          `json:"accessToken"`
	AccessExpiresAt  time.Time       `json:"accessExpiresAt"`
	RefreshToken     string          `json:"refreshToken"`
	RefreshExpiresAt time.Time       `json:"refreshExpiresAt"`
}

type sendEmailRequest struct {
	Email string `json:"email"`
}

type sendEmailResponse struct {
	envelope
	Confirmation mail.Confirmation `json:"confirmation"`
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

type meResponse struct {
	envelope
	User        auth.PublicUser `json:"user"`
	Roles       []string        `json:"roles"`
	Permissions []string        `json:"permissions"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	reg, err := a.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	a.recordAuth(r, "register", err, map[string]any{"email": req.Email})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{
		User:  reg.User,
		Roles: auth.RoleNames(reg.Roles),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := a.auth.Login(r.Context(), req.Email, req.Password)
	a.recordAuth(r, "login", err, map[string]any{"email": req.Email})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.writeSession(w, sess)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	token := req.RefreshToken
	if token == "" {
		if c, err := r.Cookie(refreshCookie); err == nil {
			token = c.Value
		}
	}
	sess, err := a.auth.Refresh(r.Context(), token)
	a.recordAuth(r, "refresh", err, nil)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			a.clearCookies(w)
		}
		handleServiceError(w, r, err)
		return
	}
	a.writeSession(w, sess)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.clearCookies(w)
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	writeJSON(w, http.StatusOK, okResponse{})
}

func (a *API) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	conf, err := a.auth.SendResetEmail(r.Context(), req.Email)
	a.recordAuth(r, "send_email", err, map[string]any{"email": req.Email})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sendEmailResponse{Confirmation: conf})
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	err := a.auth.ResetPassword(r.Context(), req.Email, req.Password, req.Token)
	a.recordAuth(r, "reset_password", err, map[string]any{"email": req.Email})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	user, roles, err := a.auth.CurrentUser(r.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			unauthorized(w, r, "invalid token")
			return
		}
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		User:        user,
		Roles:       auth.RoleNames(roles),
		Permissions: p.PermissionList(),
	})
}

func (a *API) writeSession(w http.ResponseWriter, sess auth.Session) {
	a.setCookie(w, accessCookie, sess.AccessToken, "/", sess.AccessExpiresAt)
	a.setCookie(w, refreshCookie, sess.RefreshToken, "/auth", sess.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, sessionResponse{
		User:             sess.User,
		Roles:            auth.RoleNames(sess.Roles),
		Permissions:      auth.PermissionNames(sess.Roles),
		AccessToken:      sess.AccessToken,
		AccessExpiresAt:  sess.AccessExpiresAt,
		RefreshToken:     sess.RefreshToken,
		RefreshExpiresAt: sess.RefreshExpiresAt,
	})
}

func (a *API) setCookie(w http.ResponseWriter, name, value, path string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearCookies(w http.ResponseWriter) {
	for name, path := range map[string]string{accessCookie: "/", refreshCookie: "/auth"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   a.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (a *API) recordAuth(r *http.Request, event string, err error, fields map[string]any) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	obs.RecordAuthEvent(event, outcome)
	if fields == nil {
		fields = map[string]any{}
	}
	fields["outcome"] = outcome
	if err != nil {
		fields["error"] = err.Error()
	}
	_ = audit.LogEvent(r.Context(), "auth."+event, fields)
}
