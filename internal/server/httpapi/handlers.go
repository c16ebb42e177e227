package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/skeleton/internal/common"
	"github.com/dmitrijs2005/skeleton/internal/server/mail"
)

const maxBodyBytes = 1 << 20

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type registerResponse struct {
	ID int64 `json:"id"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", common.ErrorValidation)
	}
	return nil
}

func sessionCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func expiredSessionCookie() *http.Cookie {
	c := sessionCookie("")
	c.MaxAge = -1
	c.Expires = time.Now().AddDate(-1, 0, 0)
	return c
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	if err := firstError(validateEmail(req.Email), validatePassword(req.Password)); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	tok, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}

	http.SetCookie(w, sessionCookie(tok.Encode()))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, expiredSessionCookie())
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if err := firstError(validateEmail(req.Email), validateUsername(req.Username), validatePassword(req.Password)); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	id, err := s.users.Register(r.Context(), false, req.Username, req.Password, req.Email)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}

	s.send(r, func(c *mail.Composer) (mail.Message, error) { return c.Register(req.Email, req.Username) })
	writeJSON(w, http.StatusCreated, registerResponse{ID: id})
}

// forgotPassword answers 200 whether or not the email is registered.
func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if err := validateEmail(req.Email); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	ok := messageResponse{Message: "if the account exists a reset code was sent"}

	user, err := s.users.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, common.ErrorNotFound) {
		writeJSON(w, http.StatusOK, ok)
		return
	}
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}

	code, err := s.users.RequestPasswordReset(r.Context(), req.Email)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		writeError(w, r, s.log, err)
		return
	}
	if err == nil {
		s.send(r, func(c *mail.Composer) (mail.Message, error) { return c.Reset(user.Email, user.Username, code) })
	}

	writeJSON(w, http.StatusOK, ok)
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if err := firstError(validateEmail(req.Email), validatePassword(req.Password)); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	if err := s.users.ResetPassword(r.Context(), req.Email, req.Token, req.Password); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	if user, err := s.users.GetUserByEmail(r.Context(), req.Email); err == nil {
		s.send(r, func(c *mail.Composer) (mail.Message, error) { return c.PasswordChanged(user.Email, user.Username) })
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "password updated"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFromContext(r.Context())

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if err := firstError(validateEmail(req.Email), validateUsername(req.Username), validatePassword(req.Password)); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	if err := s.users.UpdateProfile(r.Context(), user.ID, req.Username, req.Password, req.Email); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	updated, err := s.users.GetUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFromContext(r.Context())

	if err := s.users.DeleteUser(r.Context(), user.ID); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	http.SetCookie(w, expiredSessionCookie())
	writeJSON(w, http.StatusOK, messageResponse{Message: "account deleted"})
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFromContext(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if err := validatePassword(req.NewPassword); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	if _, err := s.users.VerifyPassword(r.Context(), user.Email, req.OldPassword); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if err := s.users.ChangePassword(r.Context(), user.Email, req.NewPassword); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	s.send(r, func(c *mail.Composer) (mail.Message, error) { return c.PasswordChanged(user.Email, user.Username) })
	writeJSON(w, http.StatusOK, messageResponse{Message: "password updated"})
}

// send renders and queues a notification. Mail problems never fail the
// request.
func (s *Server) send(r *http.Request, render func(*mail.Composer) (mail.Message, error)) {
	msg, err := render(s.composer)
	if err != nil {
		s.log.Warn(r.Context(), "mail not rendered", "error", err)
		return
	}
	s.mailer.Enqueue(r.Context(), msg)
}
