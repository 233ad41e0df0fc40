package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error categories. Every error returned by the store or the scheduler
// matches exactly one of these with errors.Is.
var (
	ErrValidation            = errors.New("validation failed")
	ErrStateConflict         = errors.New("state conflict")
	ErrNotFound              = errors.New("not found")
	ErrAuthenticationFailed  = errors.New("authentication failed")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrUnknownGameType       = errors.New("unknown game type")
)

// State conflicts
var (
	ErrTournamentFull          = fmt.Errorf("%w: tournament is full", ErrStateConflict)
	ErrRegistrationClosed      = fmt.Errorf("%w: registration is not open", ErrStateConflict)
	ErrAlreadyRegistered       = fmt.Errorf("%w: user is already registered", ErrStateConflict)
	ErrParticipantNotFound     = fmt.Errorf("%w: participant not found", ErrStateConflict)
	ErrInvalidParticipantState = fmt.Errorf("%w: participant is not in a valid state for this action", ErrStateConflict)
	ErrCannotStartYet          = fmt.Errorf("%w: tournament cannot start yet", ErrStateConflict)
	ErrNotLive                 = fmt.Errorf("%w: tournament is not live", ErrStateConflict)
	ErrAlreadyCompleted        = fmt.Errorf("%w: tournament is already completed", ErrStateConflict)
	ErrInvalidTransition       = fmt.Errorf("%w: invalid status transition", ErrStateConflict)
	ErrDeadlineNotReached      = fmt.Errorf("%w: registration deadline has not passed", ErrStateConflict)
	ErrCheckInClosed           = fmt.Errorf("%w: check-in is not available", ErrStateConflict)
	ErrMatchNotFound           = fmt.Errorf("%w: match not found", ErrStateConflict)
	ErrMatchAlreadyCompleted   = fmt.Errorf("%w: match is already completed", ErrStateConflict)
	ErrDuplicateTournament     = fmt.Errorf("%w: tournament already exists for this slot", ErrStateConflict)
	ErrConcurrentModification  = fmt.Errorf("%w: tournament was modified concurrently", ErrStateConflict)
)

var ErrTournamentNotFound = fmt.Errorf("%w: tournament", ErrNotFound)

// ValidationError lists the offending fields. It matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add records a field problem.
func (e *ValidationError) Add(field, problem string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = problem
}

// OrNil returns nil when no field was recorded.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Wire codes let the scheduler rebuild the same sentinel from an API response.
var errorCodes = []struct {
	code string
	err  error
}{
	{"TOURNAMENT_FULL", ErrTournamentFull},
	{"REGISTRATION_CLOSED", ErrRegistrationClosed},
	{"ALREADY_REGISTERED", ErrAlreadyRegistered},
	{"PARTICIPANT_NOT_FOUND", ErrParticipantNotFound},
	{"INVALID_PARTICIPANT_STATE", ErrInvalidParticipantState},
	{"CANNOT_START_YET", ErrCannotStartYet},
	{"NOT_LIVE", ErrNotLive},
	{"ALREADY_COMPLETED", ErrAlreadyCompleted},
	{"INVALID_TRANSITION", ErrInvalidTransition},
	{"DEADLINE_NOT_REACHED", ErrDeadlineNotReached},
	{"CHECK_IN_CLOSED", ErrCheckInClosed},
	{"MATCH_NOT_FOUND", ErrMatchNotFound},
	{"MATCH_ALREADY_COMPLETED", ErrMatchAlreadyCompleted},
	{"DUPLICATE_TOURNAMENT", ErrDuplicateTournament},
	{"CONCURRENT_MODIFICATION", ErrConcurrentModification},
	{"TOURNAMENT_NOT_FOUND", ErrTournamentNotFound},
	// categories last so specific codes win
	{"STATE_CONFLICT", ErrStateConflict},
	{"VALIDATION_FAILED", ErrValidation},
	{"NOT_FOUND", ErrNotFound},
	{"UNKNOWN_GAME_TYPE", ErrUnknownGameType},
	{"AUTHENTICATION_FAILED", ErrAuthenticationFailed},
	{"UNAUTHORIZED", ErrUnauthorized},
	{"FORBIDDEN", ErrForbidden},
	{"DEPENDENCY_UNAVAILABLE", ErrDependencyUnavailable},
}

// ErrorCode returns the wire code for err, or "INTERNAL" when err is not part
// of the taxonomy.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "INTERNAL"
}

// ErrorForCode is the inverse of ErrorCode. Unknown codes return nil.
func ErrorForCode(code string) error {
	for _, ec := range errorCodes {
		if ec.code == code {
			return ec.err
		}
	}
	return nil
}
