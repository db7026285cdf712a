package util

import "errors"

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrCredentialsRequired   = errors.New("credentials required")
	ErrSameNameAndPassword   = errors.New("username and password cannot be the same")
	ErrInvalidCredentials    = errors.New("incorrect password")
	ErrParticipantNotFound   = errors.New("participant not found")
	ErrInvestigationNotFound = errors.New("investigation not found")
	ErrInvestigationLocked   = errors.New("investigation belongs to a later round")
	ErrAlreadySubmitted      = errors.New("already submitted")
	ErrMalformedTimestamp    = errors.New("malformed timestamp")
)
