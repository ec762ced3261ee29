package auth

import "errors"

var (
	// ErrSessionNotFound indicates the presented token does not map to an active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates the session has passed its expiry and cannot be used.
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidCredentials indicates a password or token verification failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden indicates the session user is not allowed to act on the resource.
	ErrForbidden = errors.New("not authorized")
	// ErrNoLinkableEmail indicates the provider reported no email that is both
	// primary and verified, so the identity cannot be linked to a local account.
	ErrNoLinkableEmail = errors.New("no primary verified email on provider account")
)
