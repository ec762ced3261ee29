package auth

import "strings"

// AuthorizeOwner allows an operation only when the session user is the
// recorded owner of the resource. The two identifiers may originate from
// different representations, so both are normalized to their canonical string
// form before comparison. An empty session user fails closed.
func AuthorizeOwner(sessionUserID, resourceOwnerID string) error {
	me := strings.TrimSpace(sessionUserID)
	owner := strings.TrimSpace(resourceOwnerID)
	if me == "" || me != owner {
		return ErrForbidden
	}
	return nil
}
