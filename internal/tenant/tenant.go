// Package tenant carries the per-request tenant identity through every
// orchestrator entry point. The Context value below is passed
// explicitly, never stashed in a goroutine-local.
package tenant

import "strings"

// Context is an immutable carrier of the caller's identity and authorization
// for one deliberation call. Construct it once per request in the HTTP
// wrapper (external to this module) and thread it explicitly into every
// operation that touches tenant data.
type Context struct {
	UserID           string
	CompanyID        string
	allowedCompanies map[string]struct{}
	IsAdmin          bool
	IsAuthenticated  bool
}

// New builds a Context, normalizing allowedCompanies to lower-case/trimmed
// for case-insensitive membership checks.
func New(userID, companyID string, allowedCompanies []string, isAdmin, isAuthenticated bool) Context {
	set := make(map[string]struct{}, len(allowedCompanies))
	for _, c := range allowedCompanies {
		set[normalize(c)] = struct{}{}
	}
	return Context{
		UserID:           userID,
		CompanyID:        companyID,
		allowedCompanies: set,
		IsAdmin:          isAdmin,
		IsAuthenticated:  isAuthenticated,
	}
}

// Background is the process-wide default context: all-false, so background
// tasks that never touch tenant data can compile against the same
// signature. It must never be used to authorize a tenant read.
func Background() Context {
	return Context{}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MayAccess implements mayAccess(c) = isAuthenticated ∧ (isAdmin ∨ c ∈
// allowedCompanies).
func (c Context) MayAccess(companyID string) bool {
	if !c.IsAuthenticated {
		return false
	}
	if c.IsAdmin {
		return true
	}
	_, ok := c.allowedCompanies[normalize(companyID)]
	return ok
}

// AllowedCompanies returns the normalized allow-list, for diagnostics/logging.
func (c Context) AllowedCompanies() []string {
	out := make([]string, 0, len(c.allowedCompanies))
	for k := range c.allowedCompanies {
		out = append(out, k)
	}
	return out
}
