package tenant

import "github.com/revisoria/deliberation/internal/orcherrors"

// Authorize is the isolation gate every orchestrator entry point runs
// through before touching tenant data. Each failure mode gets its own
// distinct condition. An admin passes the membership check for any
// company but must still name exactly one; reads without a selected
// tenant are rejected for admins and non-admins alike.
func Authorize(ctx Context, companyID string) error {
	if !ctx.IsAuthenticated {
		return &orcherrors.Error{Kind: orcherrors.KindAuthFailure, Message: "authentication required", Wrapped: orcherrors.ErrNotAuthenticated}
	}
	if companyID == "" {
		return &orcherrors.Error{Kind: orcherrors.KindAuthFailure, Message: "no tenant selected", Wrapped: orcherrors.ErrNoTenantSelected}
	}
	if !ctx.MayAccess(companyID) {
		return &orcherrors.Error{Kind: orcherrors.KindAuthFailure, Message: "company not authorized for this user", Wrapped: orcherrors.ErrTenantNotAuthorized}
	}
	return nil
}
