package guard

import (
	"net/url"
	"strings"
)

// ReturnTarget picks where to go after sign-in: the location the guard
// redirected from, then the next query parameter, then home. Only same-site
// relative paths are accepted.
func ReturnTarget(from, next string) string {
	for _, candidate := range []string{from, next} {
		if isRelativePath(candidate) {
			return candidate
		}
	}
	return "/"
}

// isRelativePath accepts "/path?query" but not "//host", "/\host" or anything
// with a scheme.
func isRelativePath(p string) bool {
	if p == "" || !strings.HasPrefix(p, "/") {
		return false
	}
	if strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	u, err := url.Parse(p)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}
