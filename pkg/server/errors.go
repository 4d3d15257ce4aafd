package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/MacJediWizard/scim-bridge-docker/pkg/bridge"
	"github.com/MacJediWizard/scim-bridge-docker/pkg/mailcow"
	"github.com/MacJediWizard/scim-bridge-docker/pkg/scim"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		logrus.Errorf("marshal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, detail, scimType string) {
	writeJSON(w, status, &scim.ErrorResponse{
		Schemas:  []string{scim.SchemaError},
		Status:   strconv.Itoa(status),
		Detail:   detail,
		ScimType: scimType,
	})
}

// renderError maps reconciler errors onto SCIM error responses. Upstream
// Mailcow failures surface as HTTP 400 so the identity provider records them
// against the sync attempt instead of retrying blindly.
func renderError(w http.ResponseWriter, err error) {
	var validation *bridge.ValidationError
	var upstream *mailcow.UpstreamError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Detail, "invalidValue")
	case errors.Is(err, bridge.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "")
	case errors.As(err, &upstream):
		writeError(w, http.StatusBadRequest, err.Error(), "")
	default:
		logrus.Errorf("unhandled error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}
