package databrowser

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bitechdev/DataBrowser/pkg/security"
	"github.com/bitechdev/DataBrowser/pkg/views"
	"github.com/gorilla/mux"
)

// viewInput is the body of create and update requests. Absent fields are
// left unchanged on update.
type viewInput struct {
	Name        *string `json:"name"`
	Public      *bool   `json:"public"`
	Description *string `json:"description"`
	Model       *string `json:"model"`
	Fields      *string `json:"fields"`
	Query       *string `json:"query"`
}

func (in *viewInput) apply(v *views.View) {
	if in.Name != nil {
		v.Name = strings.TrimSpace(*in.Name)
	}
	if in.Public != nil {
		v.Public = *in.Public
	}
	if in.Description != nil {
		v.Description = *in.Description
	}
	if in.Model != nil {
		v.ModelName = *in.Model
	}
	if in.Fields != nil {
		v.Fields = *in.Fields
	}
	if in.Query != nil {
		v.Query = strings.TrimPrefix(*in.Query, "?")
	}
}

// check validates v as saved by user. wasPublic is the stored public flag.
func (h *Handler) check(user *security.User, v *views.View, wasPublic bool) error {
	if v.Name == "" {
		return errors.New("name is required")
	}
	if err := rootModel(h.modelsFor(user), v.ModelName); err != nil {
		return err
	}
	if v.Public && !wasPublic && !user.HasPerm(views.MakePublicPerm) {
		return fmt.Errorf("making views public needs %s: %w", views.MakePublicPerm, views.ErrForbidden)
	}
	return nil
}

// ownView loads the view in the URL if user may see it. Other users' views
// are reported as missing.
func (h *Handler) ownView(r *http.Request, user *security.User) (*views.View, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return nil, views.ErrNotFound
	}
	v, err := h.views.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if v.OwnerID != user.ID && !user.IsSuperuser() {
		return nil, views.ErrNotFound
	}
	return v, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*viewInput, bool) {
	var in viewInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", err)
		return nil, false
	}
	return &in, true
}

func (h *Handler) sendCheckError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errUnknownModel):
		h.sendError(w, http.StatusBadRequest, "invalid_model", err.Error(), nil)
	case errors.Is(err, views.ErrForbidden):
		h.sendError(w, http.StatusForbidden, "forbidden", err.Error(), nil)
	default:
		h.sendError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
	}
}

// page reads the limit and offset query parameters. Missing or invalid
// values leave the listing unbounded.
func page(r *http.Request) views.Page {
	var p views.Page
	values := r.URL.Query()
	if n, err := strconv.Atoi(values.Get("limit")); err == nil && n > 0 {
		p.Limit = n
	}
	if n, err := strconv.Atoi(values.Get("offset")); err == nil && n > 0 {
		p.Offset = n
	}
	return p
}

// ListViews returns the caller's views, optionally one page at a time. The
// X-Total-Count header carries the number of views across all pages.
func (h *Handler) ListViews(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(w, "ListViews", err)
		}
	}()

	user, _ := security.GetUser(r.Context())
	list, total, err := h.views.List(r.Context(), user.ID, page(r))
	if err != nil {
		h.sendStoreError(w, "ListViews", err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	h.sendResponse(w, http.StatusOK, list)
}

// CreateView saves a new view owned by the caller.
func (h *Handler) CreateView(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(w, "CreateView", err)
		}
	}()

	user, _ := security.GetUser(r.Context())
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	v := &views.View{OwnerID: user.ID}
	in.apply(v)
	if err := h.check(user, v, false); err != nil {
		h.sendCheckError(w, err)
		return
	}
	if err := h.views.Create(r.Context(), v); err != nil {
		h.sendStoreError(w, "CreateView", err)
		return
	}
	h.sendResponse(w, http.StatusCreated, v)
}

// GetView returns one of the caller's views.
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(w, "GetView", err)
		}
	}()

	user, _ := security.GetUser(r.Context())
	v, err := h.ownView(r, user)
	if err != nil {
		h.sendStoreError(w, "GetView", err)
		return
	}
	h.sendResponse(w, http.StatusOK, v)
}

// UpdateView changes one of the caller's views.
func (h *Handler) UpdateView(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(w, "UpdateView", err)
		}
	}()

	user, _ := security.GetUser(r.Context())
	v, err := h.ownView(r, user)
	if err != nil {
		h.sendStoreError(w, "UpdateView", err)
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	wasPublic := v.Public
	in.apply(v)
	if err := h.check(user, v, wasPublic); err != nil {
		h.sendCheckError(w, err)
		return
	}
	if err := h.views.Update(r.Context(), v); err != nil {
		h.sendStoreError(w, "UpdateView", err)
		return
	}
	h.sendResponse(w, http.StatusOK, v)
}

// DeleteView removes one of the caller's views.
func (h *Handler) DeleteView(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(w, "DeleteView", err)
		}
	}()

	user, _ := security.GetUser(r.Context())
	v, err := h.ownView(r, user)
	if err != nil {
		h.sendStoreError(w, "DeleteView", err)
		return
	}
	if err := h.views.Delete(r.Context(), v.ID); err != nil {
		h.sendStoreError(w, "DeleteView", err)
		return
	}
	h.sendResponse(w, http.StatusOK, map[string]interface{}{"id": v.ID})
}
