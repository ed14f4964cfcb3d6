package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/lms/internal/server/models"
)

type userView struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserViews(users []*models.User) []userView {
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, userView{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt})
	}
	return out
}

func (h *Handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, newUserViews(users))
}

func (h *Handlers) createUser(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r, "email", "password")
	if err != nil {
		writeFieldsError(w, err)
		return
	}

	if _, err := h.users.CreateUser(r.Context(), f["email"], f["password"]); err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "User created successfully"})
}

func (h *Handlers) changePassword(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	f, err := readFields(w, r, "current_password", "new_password")
	if err != nil {
		writeFieldsError(w, err)
		return
	}
	if f["current_password"] == "" {
		writeDetail(w, http.StatusBadRequest, "current_password and new_password are required")
		return
	}

	if err := h.users.ChangePassword(r.Context(), identity, f["current_password"], f["new_password"]); err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Password changed successfully"})
}

func (h *Handlers) overview(w http.ResponseWriter, r *http.Request) {
	o, err := h.analytics.Overview(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, o)
}
