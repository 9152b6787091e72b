package model

import (
	"net/url"
	"strings"
	"time"
)

// Tab is a forum page held open by the content host.
type Tab struct {
	ID        string
	URL       string
	Kind      PageKind
	ThreadKey ThreadKey
	Active    bool
	OpenedAt  time.Time
}

// OnDomain reports whether the tab URL belongs to the given forum domain,
// either exactly or as a subdomain.
func (t Tab) OnDomain(domain string) bool {
	if domain == "" {
		return false
	}
	u, err := url.Parse(t.URL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}
