package services

import "errors"

// Shared sentinel errors, used across services and in the HTTP mapping.
var (
	// Lookups
	ErrNotFound           = errors.New("requested resource not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrUserNotFound       = errors.New("user not found")

	// Validation and business rules
	ErrValidationFailed      = errors.New("validation failed")
	ErrProposedDatesCount    = errors.New("between 3 and 7 proposed dates are required")
	ErrProposedDateInPast    = errors.New("proposed dates must be in the future")
	ErrPreferredDatesEmpty   = errors.New("at least one preferred date is required")
	ErrDateNotProposed       = errors.New("preferred dates must be a subset of the proposed dates")
	ErrNegativePoints        = errors.New("points must not be negative")
	ErrEqualPoints           = errors.New("a drawn score cannot be submitted, one player must win")
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrTournamentNameTaken   = errors.New("tournament name already exists")
	ErrRegistrationConflict  = errors.New("player is already registered for this tournament")
	ErrRegistrationWithdrawn = errors.New("registration has been withdrawn")

	// Match state machine
	ErrMatchInvalidState  = errors.New("operation is not allowed in the current match state")
	ErrNotMatchPlayer     = errors.New("caller is not a participant of this match")
	ErrSelfConfirmation   = errors.New("players cannot confirm their own submitted result")
	ErrMatchHasNoOpponent = errors.New("match has no opponent to negotiate with")

	// Level progression
	ErrInvalidLevel            = errors.New("unknown tournament level")
	ErrLevelAlreadyInitialized = errors.New("matches already exist at this level")
	ErrCannotInitializeLevel   = errors.New("level initialization preconditions are not met")
	ErrLevelNotInLadder        = errors.New("level is not part of this tournament's ladder")

	// Authentication and authorization
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
)
