package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// WriteJSON encodes v to the response with the given status. Responses
// are marked uncacheable because most of what this server returns is a
// credential of some kind.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache marks the response uncacheable. RFC 6749 requires this on any
// response carrying tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// ParseSpaceDelimitedFields splits a space-delimited value, as used for
// scope parameters. Empty or all-whitespace input yields nil.
func ParseSpaceDelimitedFields(s string) []string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return strings.Fields(s)
}
