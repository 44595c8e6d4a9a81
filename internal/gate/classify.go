package gate

import (
	"net/http"
	"strings"
)

// Classifier marks requests as internal by path. Internal covers the admin
// area (including its login page), the API, the job endpoints, static assets
// and the health probe. CLI invocations never reach the HTTP server, so they
// bypass the gate by construction.
type Classifier struct {
	prefixes []string
	exact    map[string]bool
}

// NewClassifier returns a Classifier with the default internal surface.
// Extra path prefixes can be added for deployments that mount additional
// tooling routes.
func NewClassifier(extraPrefixes ...string) *Classifier {
	return &Classifier{
		prefixes: append([]string{"/admin", "/api", "/jobs", "/static"}, extraPrefixes...),
		exact:    map[string]bool{"/health": true},
	}
}

// Internal reports whether the request targets the internal surface.
func (c *Classifier) Internal(r *http.Request) bool {
	path := r.URL.Path
	if c.exact[path] {
		return true
	}
	for _, p := range c.prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
