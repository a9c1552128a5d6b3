package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for single-condition rejections. Every rejection is
// synchronous and leaves state untouched; retry policy belongs to callers.
var (
	// ErrInvalidQuantity rejects planting with a zero quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrNotOwner rejects an owner-restricted action by another caller.
	ErrNotOwner = errors.New("not owner")
	// ErrAlreadyConsumed rejects mutation of a terminally issued plant.
	ErrAlreadyConsumed = errors.New("plant already consumed")
	// ErrTooEarly rejects a stage advance before the dwell period elapses.
	ErrTooEarly = errors.New("stage dwell not elapsed")
	// ErrAlreadyMature rejects a stage advance past the terminal stage.
	ErrAlreadyMature = errors.New("plant already fully grown")
	// ErrPlantDead rejects progress on a plot past its neglect window.
	ErrPlantDead = errors.New("plant is dead")
	// ErrPlotExists rejects claiming a plot while one is already live.
	ErrPlotExists = errors.New("a live plot already exists for this owner")
)

// InsufficientDepositError rejects a payment below the action's computed
// minimum. The message echoes the exact minimum in coin units.
type InsufficientDepositError struct {
	Kind     FeeKind
	Required Amount
}

func (e InsufficientDepositError) Error() string {
	return fmt.Sprintf("need %s GRDN to %s", e.Required, e.Kind)
}

// InsufficientPoolError rejects a reward payout exceeding the pool balance.
type InsufficientPoolError struct {
	Requested Amount
	Available Amount
}

func (e InsufficientPoolError) Error() string {
	return fmt.Sprintf("reward pool holds %s GRDN, payout of %s requested", e.Available, e.Requested)
}

// NotFoundError reports an unknown plant id or an owner without a plot.
type NotFoundError struct {
	Entity EntityType
	Key    string
}

func (e NotFoundError) Error() string {
	if e.Entity == EntityPlot {
		return fmt.Sprintf("no plot for owner %s", e.Key)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
