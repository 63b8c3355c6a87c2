package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// intParam parses an optional integer query parameter. A missing or empty
// value yields nil.
func intParam(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil //nolint:nilnil // absent parameter
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", name)
	}
	return &n, nil
}

// listParam collects a repeatable parameter. Each occurrence may also hold
// a comma-separated list.
func listParam(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
