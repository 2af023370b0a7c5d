package types

import "errors"

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrScenarioNotFound  = errors.New("scenario not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyProcessing = errors.New("analysis already processing")
)
