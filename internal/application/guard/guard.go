// Package guard decides where a navigation should land given the caller's
// auth state. It is evaluated per request and holds no state.
package guard

import "strings"

// Well-known paths
const (
	PathRoot      = "/"
	PathLogin     = "/login"
	PathSignup    = "/signup"
	PathDashboard = "/dashboard"
	PathUsers     = "/users"
)

var publicPaths = map[string]bool{
	PathRoot:   true,
	PathLogin:  true,
	PathSignup: true,
}

var adminPrefixes = []string{PathUsers}

// Request is the input of a guard decision
type Request struct {
	Path              string
	Authenticated     bool
	Admin             bool
	BackendConfigured bool
}

// Decision is either allow, or a redirect target
type Decision struct {
	Allow    bool   `json:"allow"`
	Redirect string `json:"redirect,omitempty"`
}

func allow() Decision            { return Decision{Allow: true} }
func redirect(to string) Decision { return Decision{Redirect: to} }

// Decide applies the navigation rules in order; the first that matches wins
func Decide(req Request) Decision {
	if !req.BackendConfigured {
		return allow()
	}

	path := Normalize(req.Path)

	if path == PathRoot {
		if req.Authenticated {
			return redirect(PathDashboard)
		}
		return redirect(PathLogin)
	}
	if !req.Authenticated && !publicPaths[path] {
		return redirect(PathLogin)
	}
	if req.Authenticated && (path == PathLogin || path == PathSignup) {
		return redirect(PathDashboard)
	}
	if IsAdminPath(path) && !req.Admin {
		return redirect(PathDashboard)
	}
	return allow()
}

// IsAdminPath reports whether path requires the admin role
func IsAdminPath(path string) bool {
	path = Normalize(path)
	for _, prefix := range adminPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// Normalize drops the query string and trailing slashes
func Normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return PathRoot
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return PathRoot
		}
	}
	return path
}
