package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/straye-as/success-api/internal/config"
)

// SwaggerPathPrefix is served with a relaxed content security policy
const SwaggerPathPrefix = "/swagger/"

const swaggerCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"

type header struct {
	name  string
	value string
}

// securityHeaders resolves the static header set once from config
func securityHeaders(cfg *config.SecurityConfig) []header {
	var out []header
	add := func(name, value string) {
		if value != "" {
			out = append(out, header{name, value})
		}
	}

	if cfg.ContentTypeNosniff {
		add("X-Content-Type-Options", "nosniff")
	}
	add("X-Frame-Options", cfg.FrameOptions)
	add("X-XSS-Protection", cfg.XSSProtection)
	add("Referrer-Policy", cfg.ReferrerPolicy)
	add("Permissions-Policy", cfg.PermissionsPolicy)

	if cfg.EnableHSTS {
		hsts := fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		if cfg.HSTSPreload {
			hsts += "; preload"
		}
		add("Strict-Transport-Security", hsts)
	}
	return out
}

// SecurityHeaders returns a middleware that adds security headers to responses
func SecurityHeaders(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	static := securityHeaders(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, sh := range static {
				h.Set(sh.name, sh.value)
			}

			if cfg.ContentSecurityPolicy != "" {
				// Swagger UI needs inline scripts and styles
				if strings.HasPrefix(r.URL.Path, SwaggerPathPrefix) {
					h.Set("Content-Security-Policy", swaggerCSP)
				} else {
					h.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
				}
			}

			h.Del("X-Powered-By")
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}
