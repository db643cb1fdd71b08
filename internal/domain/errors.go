package domain

import "errors"

var (
	ErrPermissionDenied     = errors.New("device permission denied")
	ErrPermissionsRequired  = errors.New("permissions must be granted before confirming readiness")
	ErrRoleConflict         = errors.New("session already has a broadcaster")
	ErrTransportLoss        = errors.New("transport connection lost")
	ErrIngestionPageFailure = errors.New("document page could not be ingested")
	ErrSyncTimeout          = errors.New("sync deadline exceeded")

	ErrInvalidTransition      = errors.New("invalid state transition")
	ErrNotBroadcaster         = errors.New("operation requires broadcaster authority")
	ErrFollowerReadOnly       = errors.New("followers cannot change the shared view")
	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionEnded           = errors.New("session has ended")
	ErrParticipantNotFound    = errors.New("participant not found")
	ErrInvalidToken           = errors.New("invalid channel token")
	ErrSceneDirectoryExists   = errors.New("scene directory already exists")
	ErrSceneDirectoryNotFound = errors.New("scene directory not found")
	ErrSceneOutOfRange        = errors.New("scene index out of range")
	ErrPayloadTooLarge        = errors.New("encoded scene exceeds payload limit")
)
