package handler

import (
	"net/http"

	"chatloop/internal/httputil"
)

// PathParam reads a required path value. On a missing value it writes a 400
// and returns ok=false.
func PathParam(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		httputil.RespondError(w, http.StatusBadRequest, label+" is required")
		return "", false
	}
	return value, true
}
