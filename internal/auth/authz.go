package auth

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/hostelsec/internal/apperr"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Deny reasons. These are retained for logs; callers only ever see "forbidden".
const (
	ReasonForbiddenRole    = "forbidden-role"
	ReasonGuardNotAssigned = "guard-not-assigned"
	ReasonGuardWrongSite   = "guard-wrong-site"
	ReasonForbidden        = "forbidden"
)

// RoleSet is a set of roles required by an operation.
type RoleSet uint8

func roleBit(r models.Role) RoleSet {
	switch r {
	case models.RoleAdmin:
		return 1 << 0
	case models.RoleSupervisor:
		return 1 << 1
	case models.RoleGuard:
		return 1 << 2
	}
	return 0
}

// Roles builds a RoleSet.
func Roles(roles ...models.Role) RoleSet {
	var set RoleSet
	for _, r := range roles {
		set |= roleBit(r)
	}
	return set
}

// Contains reports whether r is in the set.
func (s RoleSet) Contains(r models.Role) bool {
	bit := roleBit(r)
	return bit != 0 && s&bit != 0
}

// Common role sets.
var (
	AnyRole   = Roles(models.RoleAdmin, models.RoleSupervisor, models.RoleGuard)
	OrgStaff  = Roles(models.RoleAdmin, models.RoleSupervisor)
	AdminOnly = Roles(models.RoleAdmin)
)

// Principal is an authenticated user together with the scope of its claim.
// Role comes from freshly loaded user state, Scope from the decoded claim.
type Principal struct {
	UserID int64
	OrgID  int64
	Role   models.Role
	Scope  Scope
}

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  string
}

var allow = Decision{Allowed: true}

func deny(reason string) Decision { return Decision{Reason: reason} }

// Err converts a DENY into a Forbidden error, ALLOW into nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperr.Forbidden(d.Reason)
}

// Authorize decides whether p may act with one of the required roles, and,
// when targetSiteID is non-nil, on that specific site. It is a pure function
// of (role, scope, targetSiteID).
func Authorize(p Principal, required RoleSet, targetSiteID *int64) Decision {
	if !required.Contains(p.Role) {
		return deny(ReasonForbiddenRole)
	}

	if targetSiteID == nil {
		return allow
	}

	switch p.Role {
	case models.RoleAdmin, models.RoleSupervisor:
		return allow
	case models.RoleGuard:
		siteID, ok := p.Scope.SiteID()
		if !ok {
			return deny(ReasonGuardNotAssigned)
		}
		if siteID != *targetSiteID {
			return deny(ReasonGuardWrongSite)
		}
		return allow
	}

	return deny(ReasonForbidden)
}

// Require runs Authorize and logs the internal reason of a denial.
func Require(ctx context.Context, p Principal, required RoleSet, targetSiteID *int64) error {
	d := Authorize(p, required, targetSiteID)
	if d.Allowed {
		return nil
	}

	ev := zerolog.Ctx(ctx).Debug().
		Int64("user_id", p.UserID).
		Str("role", string(p.Role)).
		Str("scope", p.Scope.String()).
		Str("reason", d.Reason)
	if targetSiteID != nil {
		ev = ev.Int64("target_site_id", *targetSiteID)
	}
	ev.Msg("authorization denied")

	telemetry.GetMetrics().AuthzDenialsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", d.Reason)))

	return d.Err()
}

// SiteVisibility narrows list queries for a principal.
type SiteVisibility struct {
	// SiteID restricts results to one site when non-nil.
	SiteID *int64
	// Empty means the principal can see nothing at all.
	Empty bool
}

// VisibleSites returns the list narrowing for p. Guards only see their scoped
// site; an unassigned guard sees nothing rather than getting an error.
func VisibleSites(p Principal) SiteVisibility {
	if p.Role.OrgWide() {
		return SiteVisibility{}
	}
	if p.Role != models.RoleGuard {
		return SiteVisibility{Empty: true}
	}
	siteID, ok := p.Scope.SiteID()
	if !ok {
		return SiteVisibility{Empty: true}
	}
	return SiteVisibility{SiteID: &siteID}
}

// Allows reports whether a row owned by siteID passes the narrowing.
func (v SiteVisibility) Allows(siteID int64) bool {
	if v.Empty {
		return false
	}
	return v.SiteID == nil || *v.SiteID == siteID
}

// ScopeForUser derives the claim scope for a user at login time. Org-wide
// roles and unassigned guards are unscoped.
func ScopeForUser(u *models.User) Scope {
	if u.Role.OrgWide() {
		return Unscoped()
	}
	return ScopeFromSite(u.SiteID)
}
