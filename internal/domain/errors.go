package domain

import "errors"

// Error taxonomy surfaced to API callers. Each sentinel maps to a distinct
// machine-readable error kind so callers can tell "retry later" from "fix
// your request" from "reauthenticate".
var (
	// ErrUnauthenticated means no valid session exists; the caller must run
	// the auth flow before any data-plane call succeeds.
	ErrUnauthenticated = errors.New("not authenticated with Telegram")

	// ErrInvalidRequest is a caller error in pagination or date bounds,
	// rejected before any upstream call.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrChannelNotAccessible means the configured channel cannot be resolved
	// or the account is not subscribed to it.
	ErrChannelNotAccessible = errors.New("channel not accessible")

	// ErrRateLimited is surfaced only after the flood-wait retry budget is
	// exhausted.
	ErrRateLimited = errors.New("upstream rate limit exceeded")

	// ErrUpstreamUnavailable means transient failures exhausted the retry
	// budget.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrInvalidAuthState is returned for out-of-order auth calls, e.g.
	// verifying a code with no pending code request.
	ErrInvalidAuthState = errors.New("invalid authentication state")

	// ErrAlreadyAuthenticating rejects a second concurrent authorization
	// attempt.
	ErrAlreadyAuthenticating = errors.New("authentication already in progress")

	// ErrIncorrectCredentials covers a wrong login code or 2FA password.
	ErrIncorrectCredentials = errors.New("incorrect credentials")

	// ErrTwoFactorRequired signals that code verification succeeded but the
	// account has a cloud password; finish with the 2FA step.
	ErrTwoFactorRequired = errors.New("two-factor authentication required")

	// ErrMessageNotFound means the requested message id does not exist in the
	// channel.
	ErrMessageNotFound = errors.New("message not found")

	// ErrMediaUnavailable means a message has no media or its bytes could not
	// be fetched.
	ErrMediaUnavailable = errors.New("media unavailable")
)
