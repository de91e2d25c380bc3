package validators

import "testing"

// Only the malformed shapes are tested here; resolving domains needs DNS.
func TestEmailDomainResolvesRejectsMalformed(t *testing.T) {
	for _, email := range []string{"", "dana", "dana@", "@example.com", "dana@one@two"} {
		if EmailDomainResolves(email) {
			t.Fatalf("%q accepted", email)
		}
	}
}
