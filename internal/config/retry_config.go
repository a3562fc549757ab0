package config

import "time"

// SearchBackoff holds the retry schedule for outbound web search calls.
type SearchBackoff struct {
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// GetSearchBackoff returns the search retry schedule for the current environment.
// In test environments the schedule is shortened so failures surface quickly.
func (c Config) GetSearchBackoff() SearchBackoff {
	if c.IsTest() {
		return SearchBackoff{
			MaxElapsedTime:  300 * time.Millisecond,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      2.0,
		}
	}
	return SearchBackoff{
		MaxElapsedTime:  c.SearchBackoffMaxElapsedTime,
		InitialInterval: c.SearchBackoffInitialInterval,
		MaxInterval:     c.SearchBackoffMaxInterval,
		Multiplier:      c.SearchBackoffMultiplier,
	}
}
