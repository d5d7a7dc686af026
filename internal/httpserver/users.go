// Registration, login, token refresh, and user update handlers.
// Validation runs synchronously before any store call and short-circuits
// on the first failing rule; the messages and status codes are part of
// the public API and are pinned by the handler tests.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/MorganHuegel/endurance-data-serverside/internal/store"
)

// bcryptCost is deliberately below the default; these are low-value
// dev accounts and registration latency matters more.
const bcryptCost = 8

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleRegister creates a user with an empty workout/preference set and
// returns a token for the new username.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondErr(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if body.Username == "" {
		respondErr(w, http.StatusBadRequest, "Username is required")
		return
	}
	if strings.TrimSpace(body.Username) != body.Username {
		respondErr(w, http.StatusBadRequest, "Username must not contain whitespace")
		return
	}
	if body.Password == "" {
		respondErr(w, http.StatusBadRequest, "Password is required")
		return
	}
	if len(body.Password) < 8 {
		respondErr(w, http.StatusBadRequest, "Password must be at least 8 characters long")
		return
	}
	if len(body.Password) > 72 {
		respondErr(w, http.StatusBadRequest, "Password must be less than 72 characters long")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcryptCost)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	u := &store.User{
		Username:     body.Username,
		PasswordHash: string(hash),
		Preferences:  []string{},
		Workouts:     []string{},
	}
	if err := s.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			respondErr(w, http.StatusUnprocessableEntity, "Username already exists")
			return
		}
		respondInternal(w, r, err)
		return
	}

	tok, err := s.tokens.Issue(u.Username)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, tok)
}

// handleLogin checks credentials and returns a fresh token.
// "Username does not exist" vs "do not match" are intentionally
// distinct; the original API exposed both and clients key off them.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondErr(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	for _, f := range []struct{ field, v string }{
		{"username", body.Username},
		{"password", body.Password},
	} {
		field, v := f.field, f.v
		if v == "" {
			respondErr(w, http.StatusBadRequest, field+" required to log in")
			return
		}
		if strings.TrimSpace(v) != v {
			respondErr(w, http.StatusBadRequest, field+" should not contain whitespace")
			return
		}
	}
	if len(body.Password) < 8 {
		respondErr(w, http.StatusBadRequest, "Passwords are at least 8 characters in length.")
		return
	}
	if len(body.Password) > 72 {
		respondErr(w, http.StatusBadRequest, "Passwords are less than 72 characters in length.")
		return
	}

	u, err := s.store.FindUserByUsername(r.Context(), body.Username)
	if errors.Is(err, store.ErrNotFound) {
		respondErr(w, http.StatusBadRequest, "Username does not exist")
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(body.Password)) != nil {
		respondErr(w, http.StatusBadRequest, "Username and password do not match")
		return
	}

	tok, err := s.tokens.Issue(u.Username)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, tok)
}

// handleRefresh re-validates the presented token and reissues one for
// the same subject with a fresh expiry. An invalid or expired token
// never yields a new one.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	tok := bearerToken(r)
	if tok == "" {
		respondErr(w, http.StatusUnauthorized, unauthorizedMsg)
		return
	}
	fresh, err := s.tokens.Refresh(tok)
	if err != nil {
		respondErr(w, http.StatusUnauthorized, unauthorizedMsg)
		return
	}
	respondJSON(w, fresh)
}

// updateUserReq is the typed partial update accepted by PUT /users.
// The strict decoder rejects any key outside this set, which is the
// whole field whitelist.
type updateUserReq struct {
	Username    *string   `json:"username"`
	Password    *string   `json:"password"`
	Email       *string   `json:"email"`
	Preferences *[]string `json:"preferences"`
	Workouts    *[]string `json:"workouts"`
}

// handleUpdateUser applies a partial update to the authenticated user.
// The body's username, if present, is the NEW value; the record is
// always addressed by the token's subject. A username change invalidates
// the old token's subject, so the response is a fresh token in that
// case and the updated user projection otherwise.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var body updateUserReq
	if err := dec.Decode(&body); err != nil {
		if strings.Contains(err.Error(), "unknown field") {
			respondErr(w, http.StatusBadRequest, "Update body contains fields that are not in the database")
			return
		}
		respondErr(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if body.Username != nil {
		if len(*body.Username) < 1 {
			respondErr(w, http.StatusBadRequest, "Usernames must be at least 1 character.")
			return
		}
		if strings.TrimSpace(*body.Username) != *body.Username {
			respondErr(w, http.StatusBadRequest, "Usernames should not contain whitespace.")
			return
		}
	}

	patch := store.UserPatch{
		Username:    body.Username,
		Email:       body.Email,
		Preferences: body.Preferences,
		Workouts:    body.Workouts,
	}

	if body.Password != nil {
		pw := *body.Password
		if strings.TrimSpace(pw) != pw {
			respondErr(w, http.StatusBadRequest, "Password cannot contain whitespace")
			return
		}
		if len(pw) < 8 {
			respondErr(w, http.StatusBadRequest, "Password must be at least 8 characters long.")
			return
		}
		if len(pw) > 72 {
			respondErr(w, http.StatusBadRequest, "Password must be less than 72 characters long.")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcryptCost)
		if err != nil {
			respondInternal(w, r, err)
			return
		}
		h := string(hash)
		patch.PasswordHash = &h
	}

	updated, err := s.store.UpdateUserByUsername(r.Context(), authedUsername(r), patch)
	if errors.Is(err, store.ErrDuplicateUsername) {
		respondErr(w, http.StatusUnprocessableEntity, "Username already exists")
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		respondErr(w, http.StatusNotFound, "Not Found")
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	if body.Username != nil {
		tok, err := s.tokens.Issue(updated.Username)
		if err != nil {
			respondInternal(w, r, err)
			return
		}
		respondJSON(w, tok)
		return
	}
	respondJSON(w, updated)
}
