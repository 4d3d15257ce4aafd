package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MacJediWizard/scim-bridge-docker/pkg/bridge"
	"github.com/MacJediWizard/scim-bridge-docker/pkg/scim"
)

type handlers struct {
	rec *bridge.Reconciler
}

func decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON payload: "+err.Error(), "invalidSyntax")
		return false
	}
	return true
}

// listParams echoes SCIM pagination parameters; the bridge does not slice
// results.
func listParams(r *http.Request) (startIndex, count int) {
	startIndex, count = 1, 100
	if v, err := strconv.Atoi(r.URL.Query().Get("startIndex")); err == nil && v > 0 {
		startIndex = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("count")); err == nil && v > 0 {
		count = v
	}
	return
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

func (h *handlers) metrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	h.rec.Metrics().WritePrometheus(w)
}

func (h *handlers) serviceProviderConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, scim.DefaultServiceProviderConfig())
}

func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.rec.ListUsers(r.Context())
	if err != nil {
		renderError(w, err)
		return
	}
	startIndex, count := listParams(r)
	writeJSON(w, http.StatusOK, scim.NewListResponse(users, len(users), startIndex, count))
}

func (h *handlers) createUser(w http.ResponseWriter, r *http.Request) {
	var payload scim.UserCreate
	if !decode(w, r, &payload) {
		return
	}
	user, err := h.rec.CreateUser(r.Context(), &payload)
	if err != nil {
		renderError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *handlers) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.rec.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) replaceUser(w http.ResponseWriter, r *http.Request) {
	var payload scim.UserCreate
	if !decode(w, r, &payload) {
		return
	}
	user, err := h.rec.ReplaceUser(r.Context(), chi.URLParam(r, "id"), &payload)
	if err != nil {
		renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) listGroups(w http.ResponseWriter, r *http.Request) {
	groups := h.rec.ListGroups()
	startIndex, count := listParams(r)
	writeJSON(w, http.StatusOK, scim.NewListResponse(groups, len(groups), startIndex, count))
}

func (h *handlers) createGroup(w http.ResponseWriter, r *http.Request) {
	var payload scim.GroupCreate
	if !decode(w, r, &payload) {
		return
	}
	group, err := h.rec.CreateGroup(r.Context(), &payload)
	if err != nil {
		renderError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (h *handlers) getGroup(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rec.GetGroup(chi.URLParam(r, "id")))
}

func (h *handlers) replaceGroup(w http.ResponseWriter, r *http.Request) {
	var payload scim.GroupCreate
	if !decode(w, r, &payload) {
		return
	}
	group, err := h.rec.ReplaceGroup(r.Context(), chi.URLParam(r, "id"), &payload)
	if err != nil {
		renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *handlers) patchGroup(w http.ResponseWriter, r *http.Request) {
	var rq scim.PatchRequest
	if !decode(w, r, &rq) {
		return
	}
	group, err := h.rec.PatchGroup(r.Context(), chi.URLParam(r, "id"), &rq)
	if err != nil {
		renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}
