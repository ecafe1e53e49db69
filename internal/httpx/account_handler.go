package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-marketplace.git/internal/auth"
	"github.com/ariefcatur/go-marketplace.git/internal/users"
)

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *API) signup(w http.ResponseWriter, r *http.Request) {
	var req users.NewUser
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	u, err := a.Accounts.Create(r.Context(), req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	u, err := a.Accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	a.writeTokens(w, r, u)
}

// refresh trades a refresh token for a new pair. The role is re-read so a
// changed or removed account takes effect at the next refresh.
func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
	}
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		raw = r.URL.Query().Get("refresh_token_str")
	}
	if raw == "" {
		writeErr(w, r, badRequest("refresh_token is required"))
		return
	}
	id, err := a.Auth.ParseRefresh(raw)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	u, err := a.Accounts.Get(r.Context(), id.UserID)
	if errors.Is(err, users.ErrUserNotFound) {
		writeErr(w, r, auth.ErrInvalidToken)
		return
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}
	a.writeTokens(w, r, u)
}

// logout is a no-op: tokens are stateless and the client discards them.
func (a *API) logout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Successfully logged out"})
}

func (a *API) writeTokens(w http.ResponseWriter, r *http.Request, u *users.User) {
	pair, err := a.Auth.IssuePair(auth.Identity{UserID: u.ID, Role: auth.RoleOf(u.Role)}, a.AccessTTL, a.RefreshTTL)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) getProfile(w http.ResponseWriter, r *http.Request) {
	u, err := a.Accounts.Get(r.Context(), caller(r).UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// updateProfile never touches the role; staff roles are granted out of band.
func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req users.ProfileUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	u, err := a.Accounts.UpdateProfile(r.Context(), caller(r).UserID, req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
