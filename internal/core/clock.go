package core

import (
	"time"

	"gardencore/pkg/domain"
)

// Clock abstracts the time oracle so tests can simulate elapsed dwell and
// neglect periods deterministically instead of sleeping.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface. A nil function
// falls back to UTC wall-clock time.
type ClockFunc func() time.Time

// Now returns the clock's current time in UTC.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}

// NowProvider is implemented by stores that expose their time source.
type NowProvider interface {
	NowFunc() func() time.Time
}

// RulesEngineProvider is implemented by stores that expose their engine for
// rule registration.
type RulesEngineProvider interface {
	RulesEngine() *domain.RulesEngine
}

// selectNowFunc prefers the store's own time source so that read paths and
// transactional paths observe the same simulated clock; an explicit clock
// option overrides it.
func selectNowFunc(store domain.PersistentStore, clock Clock) func() time.Time {
	if clock != nil {
		return clock.Now
	}
	if provider, ok := store.(NowProvider); ok {
		if fn := provider.NowFunc(); fn != nil {
			return fn
		}
	}
	return func() time.Time { return time.Now().UTC() }
}

// extractRulesEngine returns the store's engine, or nil when the store does
// not expose one.
func extractRulesEngine(store domain.PersistentStore) *domain.RulesEngine {
	if provider, ok := store.(RulesEngineProvider); ok {
		return provider.RulesEngine()
	}
	return nil
}
