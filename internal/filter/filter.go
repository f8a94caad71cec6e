// Package filter removes search results published on banned domains.
package filter

import (
	"bufio"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"golang.org/x/net/publicsuffix"

	"oski/internal/models"
)

// DomainSet is a set of registrable domain labels, e.g. "spam" for
// spam.com, www.spam.co.uk and news.spam.org alike.
type DomainSet map[string]struct{}

// NewDomainSet builds a set from domains in any form: bare labels,
// registrable domains, hostnames or full URLs.
func NewDomainSet(domains ...string) DomainSet {
	set := make(DomainSet, len(domains))
	for _, d := range domains {
		if label := normalizeEntry(d); label != "" {
			set[label] = struct{}{}
		}
	}

	return set
}

// Contains reports whether label is banned.
func (s DomainSet) Contains(label string) bool {
	_, ok := s[label]

	return ok
}

// LoadBannedDomains reads one domain per line. Trailing whitespace is
// trimmed and blank lines are skipped.
func LoadBannedDomains(path string) (DomainSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ban file: %w", err)
	}
	defer f.Close()

	var domains []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		domains = append(domains, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ban file: %w", err)
	}

	return NewDomainSet(domains...), nil
}

// Filter returns the results whose domain is not banned, in input order.
// The input slice is not modified. An empty set keeps everything.
func Filter(results []models.Article, banned DomainSet) []models.Article {
	kept := make([]models.Article, 0, len(results))

	for _, r := range results {
		if len(banned) > 0 && banned.Contains(DomainOf(r.URL)) {
			continue
		}

		kept = append(kept, r)
	}

	return kept
}

// DomainOf extracts the lower-cased registrable domain label of a URL:
// the part left of the public suffix, without any subdomain.
// It returns "" when no host can be found.
func DomainOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}

	return labelOf(u.Hostname())
}

func normalizeEntry(entry string) string {
	entry = strings.ToLower(strings.TrimSpace(entry))
	if entry == "" {
		return ""
	}

	if strings.Contains(entry, "://") {
		return DomainOf(entry)
	}

	// Entries may carry a path ("spam.com/news"); only the host matters.
	host, _, _ := strings.Cut(entry, "/")
	if !strings.Contains(host, ".") {
		return host
	}

	return labelOf(host)
}

func labelOf(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return ""
	}

	if net.ParseIP(host) != nil {
		return host
	}

	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// The host is itself a public suffix (or a single label like
		// "localhost"); use it whole.
		return host
	}

	suffix, _ := publicsuffix.PublicSuffix(registrable)

	return strings.TrimSuffix(registrable, "."+suffix)
}
