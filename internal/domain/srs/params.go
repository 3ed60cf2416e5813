package srs

import (
	"errors"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// DefaultMaxInterval is the longest interval, in days, a card can be given.
const DefaultMaxInterval = 36500

// maxRepresentableInterval keeps now+interval inside time.Duration, which
// overflows a little past 106751 days.
const maxRepresentableInterval = 100000

// ErrInvalidParams is returned when a Params value cannot drive the scheduler.
var ErrInvalidParams = errors.New("invalid srs params")

// Params defines all configurable parameters for the SRS algorithm
type Params struct {
	// Core limits. MaxEaseFactor of 0 leaves the ease factor unbounded above.
	MinEaseFactor float64
	MaxEaseFactor float64

	// GraduationThreshold is the number of consecutive non-again reviews after
	// which a learning card moves to review.
	GraduationThreshold int

	// Adjustments for different ratings
	EaseFactorAdjustment map[domain.Rating]float64
	IntervalModifier     map[domain.Rating]float64

	// Seed intervals (days) used when the current interval is 0
	FirstReviewIntervals map[domain.Rating]int

	// AgainStep is how soon a lapsed or failed card comes back.
	AgainStep time.Duration

	// MaxInterval caps every computed interval, in days.
	MaxInterval int
}

// ParamsConfig allows overriding the default parameters when creating a new
// Params instance. Zero fields keep their defaults.
type ParamsConfig struct {
	MinEaseFactor       float64
	MaxEaseFactor       float64
	GraduationThreshold int

	AgainEaseFactorAdjustment float64
	HardEaseFactorAdjustment  float64
	EasyEaseFactorAdjustment  float64

	HardIntervalModifier float64
	EasyIntervalModifier float64

	FirstReviewHardInterval int
	FirstReviewGoodInterval int
	FirstReviewEasyInterval int

	AgainStep   time.Duration
	MaxInterval int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor:       1.3,
		MaxEaseFactor:       0,
		GraduationThreshold: 2,

		EaseFactorAdjustment: map[domain.Rating]float64{
			domain.RatingAgain: -0.20,
			domain.RatingHard:  -0.15,
			domain.RatingGood:  0.0,
			domain.RatingEasy:  0.15,
		},

		// Good always multiplies by the ease factor alone; Easy multiplies by
		// both the ease factor and its modifier.
		IntervalModifier: map[domain.Rating]float64{
			domain.RatingAgain: 0.0,
			domain.RatingHard:  1.2,
			domain.RatingGood:  1.0,
			domain.RatingEasy:  1.3,
		},

		FirstReviewIntervals: map[domain.Rating]int{
			domain.RatingHard: 1,
			domain.RatingGood: 1,
			domain.RatingEasy: 2,
		},

		AgainStep:   10 * time.Minute,
		MaxInterval: DefaultMaxInterval,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) (*Params, error) {
	params := NewDefaultParams()

	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.MaxEaseFactor > 0 {
		params.MaxEaseFactor = config.MaxEaseFactor
	}
	if config.GraduationThreshold > 0 {
		params.GraduationThreshold = config.GraduationThreshold
	}

	if config.AgainEaseFactorAdjustment != 0 {
		params.EaseFactorAdjustment[domain.RatingAgain] = config.AgainEaseFactorAdjustment
	}
	if config.HardEaseFactorAdjustment != 0 {
		params.EaseFactorAdjustment[domain.RatingHard] = config.HardEaseFactorAdjustment
	}
	if config.EasyEaseFactorAdjustment != 0 {
		params.EaseFactorAdjustment[domain.RatingEasy] = config.EasyEaseFactorAdjustment
	}

	if config.HardIntervalModifier > 0 {
		params.IntervalModifier[domain.RatingHard] = config.HardIntervalModifier
	}
	if config.EasyIntervalModifier > 0 {
		params.IntervalModifier[domain.RatingEasy] = config.EasyIntervalModifier
	}

	if config.FirstReviewHardInterval > 0 {
		params.FirstReviewIntervals[domain.RatingHard] = config.FirstReviewHardInterval
	}
	if config.FirstReviewGoodInterval > 0 {
		params.FirstReviewIntervals[domain.RatingGood] = config.FirstReviewGoodInterval
	}
	if config.FirstReviewEasyInterval > 0 {
		params.FirstReviewIntervals[domain.RatingEasy] = config.FirstReviewEasyInterval
	}

	if config.AgainStep > 0 {
		params.AgainStep = config.AgainStep
	}
	if config.MaxInterval > 0 {
		params.MaxInterval = config.MaxInterval
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	return params, nil
}

// Validate checks that the parameters keep the scheduler invariants intact.
func (p *Params) Validate() error {
	switch {
	case p.MinEaseFactor < 1.0:
		return errors.Join(ErrInvalidParams, errors.New("min ease factor must be at least 1.0"))
	case p.MaxEaseFactor != 0 && p.MaxEaseFactor < p.MinEaseFactor:
		return errors.Join(ErrInvalidParams, errors.New("max ease factor must not be below min ease factor"))
	case p.GraduationThreshold < 1:
		return errors.Join(ErrInvalidParams, errors.New("graduation threshold must be at least 1"))
	case p.MaxInterval < 1 || p.MaxInterval > maxRepresentableInterval:
		return errors.Join(ErrInvalidParams, errors.New("max interval must be between 1 and 100000 days"))
	case p.AgainStep <= 0:
		return errors.Join(ErrInvalidParams, errors.New("again step must be positive"))
	case p.IntervalModifier[domain.RatingHard] <= 0 || p.IntervalModifier[domain.RatingEasy] <= 0:
		return errors.Join(ErrInvalidParams, errors.New("interval modifiers must be positive"))
	}
	return nil
}
