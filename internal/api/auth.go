package api

import (
	"crypto/subtle"
	"fmt"
	"log"
	"net/http"

	"github.com/AaronLay10/SceneEngine/internal/config"
)

// Role represents an authorization role.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

type credential struct {
	user, pass string
	role       Role
}

// authConfig holds the accepted credentials, admin first. A nil or disabled
// config grants admin to every request.
type authConfig struct {
	creds   []credential
	enabled bool
}

var auth *authConfig

// newAuth builds the credential table. Pairs with an empty half are skipped;
// auth is enabled only when the admin pair is complete.
func newAuth(adminUser, adminPass, operatorUser, operatorPass string) *authConfig {
	a := &authConfig{}
	for _, c := range []credential{
		{adminUser, adminPass, RoleAdmin},
		{operatorUser, operatorPass, RoleOperator},
	} {
		if c.user != "" && c.pass != "" {
			a.creds = append(a.creds, c)
		}
	}
	a.enabled = adminUser != "" && adminPass != ""
	return a
}

// InitAuth loads operator API credentials from environment variables or
// files (*_FILE convention). With no admin credentials, auth is disabled.
func InitAuth() error {
	v, err := config.ResolveSecrets("SCENE_ADMIN_USER", "SCENE_ADMIN_PASS", "SCENE_OPERATOR_USER", "SCENE_OPERATOR_PASS")
	if err != nil {
		return fmt.Errorf("api auth: %w", err)
	}
	auth = newAuth(v[0], v[1], v[2], v[3])
	if !auth.enabled {
		log.Printf("api: auth disabled, no admin credentials configured")
	}
	return nil
}

// IsAuthEnabled returns true if authentication is configured.
func IsAuthEnabled() bool {
	return auth != nil && auth.enabled
}

// authenticate returns the role of the request's basic auth credentials, or
// "" when they match nothing.
func authenticate(r *http.Request) Role {
	if !IsAuthEnabled() {
		return RoleAdmin
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return ""
	}
	for _, c := range auth.creds {
		if secureCompare(user, c.user) && secureCompare(pass, c.pass) {
			return c.role
		}
	}
	return ""
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RequireRole wraps a handler and requires one of the specified roles.
// Unknown credentials get 401 with a challenge, known ones without the
// role get 403.
func RequireRole(handler http.HandlerFunc, allowedRoles ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := authenticate(r)
		if role == "" {
			w.Header().Set("WWW-Authenticate", `Basic realm="SceneEngine"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		for _, allowed := range allowedRoles {
			if role == allowed {
				handler(w, r)
				return
			}
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}

// RequireAnyRole wraps a handler requiring admin OR operator role.
func RequireAnyRole(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin, RoleOperator)
}

// RequireAdmin wraps a handler requiring admin role only.
func RequireAdmin(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin)
}
