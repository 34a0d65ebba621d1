package devapi

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/bobmcallan/events-portal/internal/validation"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeProblem writes an RFC 7807 style body.
func writeProblem(w http.ResponseWriter, r *http.Request, status int, title string, fields validation.Errors) {
	p := models.ProblemDetails{
		StatusCode: status,
		Instance:   r.URL.Path,
		Title:      title,
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p.InvalidParams = append(p.InvalidParams, models.ValidationError{Name: name, Reason: fields[name]})
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(p)
}

// writeMessage writes the {"code","message"} body used for auth failures.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"code": status, "message": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}
