package scorer

import "errors"

// Weight validation errors
var (
	ErrNegativeWeight      = errors.New("weights must be non-negative")
	ErrInvalidQualityFloor = errors.New("quality floor must be between 0 and 1")
	ErrInvalidHitCap       = errors.New("hit cap must be non-negative")
	ErrInvalidCeiling      = errors.New("ceiling must be in (0, 1]")
)
