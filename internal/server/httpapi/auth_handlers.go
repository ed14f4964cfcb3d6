package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/dmitrijs2005/lms/internal/server/auth"
)

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func newTokenResponse(p *auth.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "bearer",
		ExpiresAt:    p.AccessExpiresAt,
	}
}

// maxFieldsBody bounds request bodies that carry plain fields only.
const maxFieldsBody = 1 << 20

// readFields decodes a flat JSON object or an url-encoded/multipart form
// into a map of the requested keys. Bodies over maxFieldsBody fail with
// *http.MaxBytesError.
func readFields(w http.ResponseWriter, r *http.Request, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	r.Body = http.MaxBytesReader(w, r.Body, maxFieldsBody)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, err
		}
		for _, k := range keys {
			if s, ok := body[k].(string); ok {
				out[k] = s
			}
		}
		return out, nil
	}

	if ct == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxFieldsBody); err != nil {
			return nil, err
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, err
	}
	for _, k := range keys {
		out[k] = r.PostFormValue(k)
	}
	return out, nil
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r, "email", "password", "username")
	if err != nil {
		writeFieldsError(w, err)
		return
	}
	email := f["email"]
	if email == "" {
		// OAuth2 password-flow clients send the account as "username".
		email = f["username"]
	}
	if email == "" || f["password"] == "" {
		writeDetail(w, http.StatusBadRequest, "email and password are required")
		return
	}

	pair, err := h.users.Login(r.Context(), email, f["password"])
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

func (h *Handlers) refresh(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r, "refresh_token")
	if err != nil {
		writeFieldsError(w, err)
		return
	}
	if f["refresh_token"] == "" {
		writeDetail(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.users.Refresh(r.Context(), f["refresh_token"])
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

func writeFieldsError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeDetail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	writeDetail(w, http.StatusBadRequest, "invalid request body")
}
