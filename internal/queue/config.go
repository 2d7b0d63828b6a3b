package queue

import "time"

// Config controls queue sizing and load behavior.
type Config struct {
	// TargetSize is the length refills top the queue up to.
	TargetSize int `mapstructure:"target_size" validate:"min=1,max=20"`

	// RefillThreshold is the low watermark: dropping to this many cards
	// (but not zero) schedules a background refill.
	RefillThreshold int `mapstructure:"refill_threshold" validate:"min=0,ltfield=TargetSize"`

	// LoadTimeout is how long a blocking load runs before the learner is
	// told it is taking too long. The load itself keeps going.
	LoadTimeout time.Duration `mapstructure:"load_timeout" validate:"min=0"`

	// BuildConcurrency caps parallel card builds within one batch.
	BuildConcurrency int `mapstructure:"build_concurrency" validate:"min=1,max=16"`
}

// DefaultConfig returns the standard queue settings.
func DefaultConfig() Config {
	return Config{
		TargetSize:       5,
		RefillThreshold:  2,
		LoadTimeout:      20 * time.Second,
		BuildConcurrency: 4,
	}
}
