package images

import (
	"errors"
	"net/url"
	"strings"
)

// DefaultDomains are the external hosts the pipeline may fetch from.
var DefaultDomains = []string{
	"via.placeholder.com",
	"res.cloudinary.com",
	"images.unsplash.com",
	"cdn.pixabay.com",
}

var ErrHostNotAllowed = errors.New("image host is not allowed")

// Allowlist matches exact hostnames. Subdomains are not implied.
type Allowlist struct {
	hosts map[string]struct{}
}

func NewAllowlist(domains []string) *Allowlist {
	a := &Allowlist{hosts: make(map[string]struct{}, len(domains))}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			a.hosts[d] = struct{}{}
		}
	}
	return a
}

func (a *Allowlist) Allowed(u *url.URL) bool {
	if u == nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if u.User != nil {
		return false
	}
	_, ok := a.hosts[strings.ToLower(u.Hostname())]
	return ok
}

// Check parses raw and returns it if its host is allowed.
func (a *Allowlist) Check(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() {
		return nil, ErrHostNotAllowed
	}
	if !a.Allowed(u) {
		return nil, ErrHostNotAllowed
	}
	return u, nil
}

func (a *Allowlist) Len() int {
	return len(a.hosts)
}
