package domain

import "errors"

var (
	// ErrPlayerNotResolvable means the upstream does not know the player at all.
	// Never cached.
	ErrPlayerNotResolvable = errors.New("player not resolvable")

	// ErrNoMatchHistory means the player exists but no match record survived
	// orchestration. Cached for a short window.
	ErrNoMatchHistory = errors.New("no match history available")

	// ErrUpstreamUnavailable covers quota exhaustion, 5xx and transport
	// failures on calls the pipeline cannot do without. Retryable.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	ErrInvalidPlayerID = errors.New("invalid player id")
	ErrInvalidRiotID   = errors.New("invalid riot id")
)
