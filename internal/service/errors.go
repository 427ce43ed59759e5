package service

import "errors"

// Shared error taxonomy across services. Handlers map these onto HTTP
// statuses and user-facing messaging: persistence failures read "try again",
// external-service failures read "reconnect your account".
var (
	ErrPersistence     = errors.New("persistence failure")
	ErrExternalService = errors.New("external service failure")
	ErrUserNotFound    = errors.New("user not found")
	ErrProgramNotFound = errors.New("program not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrForbidden       = errors.New("operation not permitted for this user")
)
