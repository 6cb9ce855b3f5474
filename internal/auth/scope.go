package auth

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	scopeNone        = "none"
	subjectSeparator = ":"
)

// Scope is the organizational subtree a claim is restricted to: either the
// whole organization or a single site.
type Scope struct {
	siteID int64
	scoped bool
}

// Unscoped returns the org-wide scope.
func Unscoped() Scope { return Scope{} }

// SiteScope returns a scope bound to one site.
func SiteScope(siteID int64) Scope { return Scope{siteID: siteID, scoped: true} }

// ScopeFromSite returns SiteScope for a non-nil site id, Unscoped otherwise.
func ScopeFromSite(siteID *int64) Scope {
	if siteID == nil {
		return Unscoped()
	}
	return SiteScope(*siteID)
}

// SiteID returns the scoped site and true, or zero and false when unscoped.
func (s Scope) SiteID() (int64, bool) { return s.siteID, s.scoped }

// SitePtr returns the scoped site id as a pointer, nil when unscoped.
func (s Scope) SitePtr() *int64 {
	if !s.scoped {
		return nil
	}
	id := s.siteID
	return &id
}

// String renders the scope the way it appears in a claim subject.
func (s Scope) String() string {
	if !s.scoped {
		return scopeNone
	}
	return strconv.FormatInt(s.siteID, 10)
}

// FormatSubject renders "<principalId>:<scope>".
func FormatSubject(principalID int64, scope Scope) string {
	return strconv.FormatInt(principalID, 10) + subjectSeparator + scope.String()
}

// ParseSubject splits a claim subject into principal id and scope.
//
// When lenient is set an unparsable scope degrades to Unscoped instead of
// failing, matching tokens minted by older deployments.
func ParseSubject(sub string, lenient bool) (int64, Scope, error) {
	idPart, scopePart, ok := strings.Cut(sub, subjectSeparator)
	if !ok || idPart == "" {
		return 0, Scope{}, fmt.Errorf("malformed subject %q", sub)
	}

	principalID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, Scope{}, fmt.Errorf("invalid principal id in subject: %w", err)
	}

	if scopePart == scopeNone {
		return principalID, Unscoped(), nil
	}

	siteID, err := strconv.ParseInt(scopePart, 10, 64)
	if err != nil {
		if lenient {
			return principalID, Unscoped(), nil
		}
		return 0, Scope{}, fmt.Errorf("invalid scope in subject: %w", err)
	}

	return principalID, SiteScope(siteID), nil
}
