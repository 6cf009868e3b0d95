package types

import "fmt"

// Scope is the organization a query runs against and the owner under whose
// authority it runs. Ordinary callers pass the same value for both. An
// administrative scope is not restricted to one organization; its rows are
// chosen by OrganizationIDEq predicates alone.
type Scope struct {
	OrganizationID string
	Owner          string
	Administrative bool
}

// OrganizationScope scopes queries to org with org as owner.
func OrganizationScope(org string) Scope {
	return Scope{OrganizationID: org, Owner: org}
}

// AdministrativeScope runs queries across organizations on behalf of owner.
func AdministrativeScope(owner string) Scope {
	return Scope{Owner: owner, Administrative: true}
}

// Organization returns the organization rows are restricted to, or "" for an
// administrative scope.
func (s Scope) Organization() string {
	if s.Administrative {
		return ""
	}
	return s.OrganizationID
}

// Authorize checks that owner may run a query with predicate p in this scope.
// Outside administrative scopes the owner must equal the scope organization
// and p must not name another organization.
func (s Scope) Authorize(owner string, p Predicate) error {
	if owner == "" {
		return fmt.Errorf("%w: empty owner", ErrUnauthorized)
	}
	if s.Administrative {
		return nil
	}
	if s.OrganizationID == "" {
		return fmt.Errorf("%w: scope has no organization", ErrUnauthorized)
	}
	if !ValidID(s.OrganizationID) {
		return fmt.Errorf("%w: organization %q", ErrInvalidID, s.OrganizationID)
	}
	if owner != s.OrganizationID {
		return fmt.Errorf("%w: owner %q cannot act on organization %q", ErrUnauthorized, owner, s.OrganizationID)
	}
	for _, org := range OrganizationIDs(p) {
		if org != s.OrganizationID {
			return fmt.Errorf("%w: predicate names organization %q outside %q", ErrUnauthorized, org, s.OrganizationID)
		}
	}
	return nil
}
