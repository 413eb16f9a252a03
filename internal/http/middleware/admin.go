package middleware

import (
	"net/http"
	"strings"
)

// AdminOnly authorizes a verified identity against the owner's allowlist or
// a required Cognito group. It must run after IdentityJWT. With neither an
// allowlist nor a role configured every request is rejected, so a
// misconfigured deploy fails closed.
func AdminOnly(allowlist []string, requiredRole string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowlist))
	for _, email := range allowlist {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			allowed[email] = struct{}{}
		}
	}
	requiredRole = strings.TrimSpace(requiredRole)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := IdentityFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusForbidden, "forbidden")
				return
			}

			if len(allowed) > 0 && claims.Email != "" {
				if _, ok := allowed[strings.ToLower(claims.Email)]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			if requiredRole != "" {
				for _, group := range claims.Groups {
					if group == requiredRole {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			writeAuthError(w, http.StatusForbidden, "forbidden")
		})
	}
}
