package security

import (
	"fmt"
	"net/http"
	"time"
)

// Policy is the set of response headers for one class of route. The JSON
// API, the HTML shell and the static assets each get their own.
type Policy struct {
	CSP          string
	CacheControl string
	// ResourcePolicy is sent as Cross-Origin-Resource-Policy.
	ResourcePolicy string
	// HSTSMaxAge is only sent over TLS. Zero disables it.
	HSTSMaxAge time.Duration
}

const (
	defaultHSTS = 365 * 24 * time.Hour

	referrerPolicy    = "strict-origin-when-cross-origin"
	permissionsPolicy = "geolocation=(), microphone=(), camera=(), payment=()"
)

// APIPolicy covers JSON responses: nothing in them may load or be framed,
// and no cache may keep them since they carry per-user data.
func APIPolicy() Policy {
	return Policy{
		CSP:            "default-src 'none'; frame-ancestors 'none'",
		CacheControl:   "no-store",
		ResourcePolicy: "same-origin",
		HSTSMaxAge:     defaultHSTS,
	}
}

// PagePolicy covers the HTML shell. The page loads its script and styles
// from /static and calls /api on the same origin.
func PagePolicy() Policy {
	return Policy{
		CSP: "default-src 'none'; " +
			"script-src 'self'; " +
			"style-src 'self'; " +
			"img-src 'self' data:; " +
			"connect-src 'self'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'none'; " +
			"form-action 'self'",
		CacheControl:   "no-cache",
		ResourcePolicy: "same-origin",
		HSTSMaxAge:     defaultHSTS,
	}
}

// AssetPolicy covers embedded static files, cacheable for maxAge.
func AssetPolicy(maxAge time.Duration) Policy {
	p := Policy{
		CSP:            "default-src 'none'",
		CacheControl:   "no-cache",
		ResourcePolicy: "same-origin",
		HSTSMaxAge:     defaultHSTS,
	}
	if secs := int(maxAge / time.Second); secs > 0 {
		p.CacheControl = fmt.Sprintf("public, max-age=%d", secs)
	}
	return p
}

// Middleware sets p's headers before calling next. A policy applied on an
// inner route replaces the one set by an outer router.
func (p Policy) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.apply(w.Header(), r.TLS != nil)
		next.ServeHTTP(w, r)
	})
}

func (p Policy) apply(h http.Header, tls bool) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", referrerPolicy)
	h.Set("Permissions-Policy", permissionsPolicy)
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
	setOrDel(h, "Content-Security-Policy", p.CSP)
	setOrDel(h, "Cache-Control", p.CacheControl)
	setOrDel(h, "Cross-Origin-Resource-Policy", p.ResourcePolicy)

	if tls && p.HSTSMaxAge > 0 {
		h.Set("Strict-Transport-Security",
			fmt.Sprintf("max-age=%d; includeSubDomains", int(p.HSTSMaxAge/time.Second)))
	}
}

func setOrDel(h http.Header, key, value string) {
	if value == "" {
		h.Del(key)
		return
	}
	h.Set(key, value)
}
