// Package identity issues and reads the anonymous visitor token carried in a browser cookie.
package identity

import (
	"time"

	"github.com/oklog/ulid/v2"

	"userhistory/api/utils"
)

const (
	DefaultCookieName = "edduh_hash"
	DefaultLifetime   = 7 * 24 * time.Hour

	// contextKey remembers the token resolved during the current request.
	contextKey = "visitor_token"
)

// CredentialJar is the per-request session context the token lives in.
// *gin.Context satisfies it.
type CredentialJar interface {
	Cookie(name string) (string, error)
	SetCookie(name, value string, maxAge int, path, domain string, secure, httpOnly bool)
	Get(key string) (any, bool)
	Set(key string, value any)
}

type Options struct {
	CookieName string
	Lifetime   time.Duration
	Domain     string
	Secure     bool
}

type Issuer struct {
	name     string
	lifetime time.Duration
	domain   string
	secure   bool
	generate func() string
}

func NewIssuer(opts Options) *Issuer {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = DefaultLifetime
	}
	return &Issuer{
		name:     opts.CookieName,
		lifetime: opts.Lifetime,
		domain:   opts.Domain,
		secure:   opts.Secure,
		generate: func() string { return ulid.Make().String() },
	}
}

// CookieName is the name of the browser credential.
func (i *Issuer) CookieName() string { return i.name }

// Resolve returns the visitor's current token. A missing or malformed cookie is replaced
// by a freshly issued one, which is written to the outgoing response.
func (i *Issuer) Resolve(jar CredentialJar) string {
	if token, ok := i.Peek(jar); ok {
		jar.Set(contextKey, token)
		return token
	}
	return i.issue(jar)
}

// Peek returns the visitor's valid token without issuing one.
func (i *Issuer) Peek(jar CredentialJar) (string, bool) {
	if v, ok := jar.Get(contextKey); ok {
		// An empty value means the token was invalidated earlier in this request.
		token, _ := v.(string)
		return token, token != ""
	}
	token, err := jar.Cookie(i.name)
	if err != nil || !utils.IsAlphanumeric(token) {
		return "", false
	}
	return token, true
}

// Invalidate expires the credential immediately. No-op when the visitor has none.
func (i *Issuer) Invalidate(jar CredentialJar) {
	if !i.present(jar) {
		return
	}
	jar.SetCookie(i.name, "", -1, "/", i.domain, i.secure, true)
	jar.Set(contextKey, "")
}

func (i *Issuer) present(jar CredentialJar) bool {
	if v, ok := jar.Get(contextKey); ok {
		token, _ := v.(string)
		return token != ""
	}
	cookie, err := jar.Cookie(i.name)
	return err == nil && cookie != ""
}

func (i *Issuer) issue(jar CredentialJar) string {
	token := i.generate()
	jar.SetCookie(i.name, token, int(i.lifetime/time.Second), "/", i.domain, i.secure, true)
	jar.Set(contextKey, token)
	return token
}
