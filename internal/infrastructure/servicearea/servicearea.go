// Package servicearea decides which postal codes deliveries can reach.
package servicearea

import (
	"context"
	"strings"
)

// Static matches postal codes against a fixed prefix list. An empty list
// means every address is serviceable, which is the dev default.
type Static struct {
	prefixes []string
}

func NewStatic(prefixes []string) *Static {
	cleaned := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return &Static{prefixes: cleaned}
}

func (s *Static) Serviceable(_ context.Context, postalCode string) bool {
	if len(s.prefixes) == 0 {
		return true
	}
	postalCode = strings.TrimSpace(postalCode)
	for _, p := range s.prefixes {
		if strings.HasPrefix(postalCode, p) {
			return true
		}
	}
	return false
}
