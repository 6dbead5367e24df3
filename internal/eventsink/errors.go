package eventsink

import "errors"

var (
	// ErrAuthFailure is returned when the signed-in identity does not match the enrolled member.
	ErrAuthFailure = errors.New("user not authenticated, please rejoin the family from settings")

	// ErrNotEnrolled is returned when no family enrollment is configured.
	ErrNotEnrolled = errors.New("device is not enrolled in a family")

	// ErrInvalidFamilyID is returned for identifiers that cannot form a subject.
	ErrInvalidFamilyID = errors.New("invalid family id")
)
