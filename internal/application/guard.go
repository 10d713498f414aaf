package application

import "strings"

// OwnershipGuard decides whether an acting user may operate on a resource.
// Equality with the owner id read from the freshly loaded record is required
// and sufficient; there is no role hierarchy or delegation.
type OwnershipGuard struct{}

// Authorize returns nil when actingUserID owns the resource and
// ErrUnauthorized otherwise. Blank ids never authorize.
func (OwnershipGuard) Authorize(actingUserID, resourceOwnerID string) error {
	acting := strings.TrimSpace(actingUserID)
	owner := strings.TrimSpace(resourceOwnerID)
	if acting == "" || owner == "" {
		return ErrUnauthorized
	}
	if acting != owner {
		return ErrUnauthorized
	}
	return nil
}
