package service

import (
	"context"
	"errors"
	"fmt"

	"pasalsathi/backend/internal/domain"
	"pasalsathi/backend/internal/store"
)

var (
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Operations gated by role. Anything not listed in rolePermissions is
// open to every active authenticated user.
const (
	OpManageUsers    = "users.manage"
	OpListUsers      = "users.list"
	OpRecordPurchase = "purchases.record"
	OpSetStock       = "stock.set"
	OpViewAuditLog   = "audit.view"
	OpRecordSale     = "sales.record"
	OpManageCatalog  = "catalog.manage"
	OpViewCatalog    = "catalog.view"
	OpScanShelf      = "scans.run"
	OpViewReports    = "reports.view"
)

// rolePermissions is the single authority on which roles may run which
// operations. Handlers and service methods consult it through
// authorize; nothing checks roles inline.
var rolePermissions = map[string][]string{
	OpManageUsers:    {domain.RoleOwner},
	OpListUsers:      {domain.RoleOwner, domain.RoleManager},
	OpRecordPurchase: {domain.RoleOwner, domain.RoleManager},
	OpSetStock:       {domain.RoleOwner, domain.RoleManager},
	OpViewAuditLog:   {domain.RoleOwner, domain.RoleManager},
}

// RolesFor returns the roles allowed to run op, or every role when op
// is unrestricted.
func RolesFor(op string) []string {
	if roles, ok := rolePermissions[op]; ok {
		return roles
	}
	return []string{domain.RoleOwner, domain.RoleManager, domain.RoleCashier}
}

func roleAllowed(role string, op string) bool {
	for _, allowed := range RolesFor(op) {
		if allowed == role {
			return true
		}
	}
	return false
}

// authorize resolves the request actor, checks it against the
// permission table, and confirms the account is still active. Tokens
// outlive deactivation by up to their full lifetime, so the role claim
// alone is never trusted.
func (s *Service) authorize(ctx context.Context, op string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, fmt.Errorf("%w: no authenticated actor", ErrPermissionDenied)
	}
	user, err := s.repo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Actor{}, fmt.Errorf("%w: unknown account", ErrPermissionDenied)
		}
		return domain.Actor{}, err
	}
	if !user.Active {
		return domain.Actor{}, fmt.Errorf("%w: account deactivated", ErrPermissionDenied)
	}
	// The store is the authority on the role, not the token claim.
	actor.Role = user.Role
	if !roleAllowed(actor.Role, op) {
		return domain.Actor{}, fmt.Errorf("%w: role %s may not %s", ErrPermissionDenied, actor.Role, op)
	}
	return actor, nil
}
