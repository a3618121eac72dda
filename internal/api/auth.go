package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hearthwire/hearth-core/internal/audit"
	"github.com/hearthwire/hearth-core/internal/auth"
)

// credentials is the request body for signup and login, accepted as
// either JSON or form-encoded fields.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// parseCredentials reads credentials from a JSON body or form values.
func parseCredentials(r *http.Request) (credentials, error) {
	var creds credentials

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			return creds, err
		}
		return creds, nil
	}

	if err := r.ParseForm(); err != nil {
		return creds, err
	}
	creds.Username = r.PostFormValue("username")
	creds.Password = r.PostFormValue("password")
	return creds, nil
}

// wantsJSON reports whether the client asked for a JSON response rather
// than a browser-style redirect.
func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

// handleSignupForm describes the signup endpoint for browser clients.
func (s *Server) handleSignupForm(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "POST username and password to create an account",
		"fields":  []string{"username", "password"},
	})
}

// handleSignup creates a new user account.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	creds, err := parseCredentials(r)
	if err != nil {
		writeBadRequest(w, "MalformedRequest")
		return
	}

	user, err := s.gate.Register(r.Context(), creds.Username, creds.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameExists):
			writeError(w, http.StatusConflict, ErrCodeConflict, "UsernameExists")
		case errors.Is(err, auth.ErrInvalidUsername):
			writeBadRequest(w, "InvalidUsername")
		case errors.Is(err, auth.ErrMissingPassword):
			writeBadRequest(w, "MissingPassword")
		default:
			s.logger.Error("signup failed", "error", err)
			writeInternalError(w, "SignupFailed")
		}
		return
	}

	s.recordActivity(r.Context(), audit.Entry{
		Action: audit.ActionSignup,
		UserID: user.ID,
	})

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":       user.ID,
			"username": user.Username,
		})
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleLoginForm describes the login endpoint for browser clients.
func (s *Server) handleLoginForm(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "POST username and password to sign in",
		"fields":  []string{"username", "password"},
	})
}

// handleLogin authenticates a user and issues a session.
//
// Browser clients get the session cookie and a redirect; API clients get
// the token in the response body.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, err := parseCredentials(r)
	if err != nil {
		writeBadRequest(w, "MalformedRequest")
		return
	}

	token, user, err := s.gate.Authenticate(r.Context(), creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.recordActivity(r.Context(), audit.Entry{
				Action:  audit.ActionLoginFailed,
				Details: map[string]any{"username": creds.Username},
			})
			writeUnauthorized(w, "InvalidCredentials")
			return
		}
		s.logger.Error("login failed", "error", err)
		writeInternalError(w, "LoginFailed")
		return
	}

	s.setSessionCookie(w, token)
	s.recordActivity(r.Context(), audit.Entry{
		Action: audit.ActionLogin,
		UserID: user.ID,
	})

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"token":    token,
			"username": user.Username,
		})
		return
	}
	http.Redirect(w, r, "/devices", http.StatusSeeOther)
}

// handleLogout invalidates the current session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := extractToken(r); token != "" {
		s.gate.Invalidate(token)
	}
	s.clearSessionCookie(w)

	var userID string
	if claims := sessionFromContext(r.Context()); claims != nil {
		userID = claims.Subject
	}
	s.recordActivity(r.Context(), audit.Entry{
		Action: audit.ActionLogout,
		UserID: userID,
	})

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// setSessionCookie attaches the session token as an HttpOnly cookie.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	ttl := time.Duration(s.secCfg.Session.TTLMinutes) * time.Minute
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
