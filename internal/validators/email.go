package validators

import (
	"net"
	"strings"
)

// EmailDomainResolves reports whether the address part after "@" resolves
// in DNS. MX is preferred; a bare A/AAAA record is accepted as a fallback
// since some small providers receive mail on the apex host.
func EmailDomainResolves(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return false
	}

	if mx, err := net.LookupMX(domain); err == nil && len(mx) > 0 {
		return true
	}
	ips, err := net.LookupIP(domain)
	return err == nil && len(ips) > 0
}
