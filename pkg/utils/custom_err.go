package utils

import "errors"

var (
	// ErrParse means no JSON-shaped structure could be recovered from the
	// LLM output at all. Non-retryable at this layer.
	ErrParse = errors.New("no parseable structure in response")

	// ErrNoValidActivities means parsing worked but validation rejected
	// every activity in the batch.
	ErrNoValidActivities = errors.New("no valid activities after validation")

	ErrInvalidInput           = errors.New("invalid input")
	ErrUnexpectedBehaviorOfAI = errors.New("unexpected behavior of AI response")
	ErrRateLimited            = errors.New("provider rate limit exceeded")
	ErrProviderUnavailable    = errors.New("provider unavailable")
)
