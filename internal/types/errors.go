package types

import "errors"

var (
	// ErrDataUnavailable means the price series was empty or could not be fetched.
	ErrDataUnavailable = errors.New("price data unavailable")
	// ErrCollaboratorUnavailable means an optional collaborator (news, classifier) failed.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrInvalidRequest means the pair, interval or period was rejected before any fetch.
	ErrInvalidRequest = errors.New("invalid request")
)
