package chrono

import (
	"time"
)

// TimeAPI is what anything depending on the system clock should use.
type TimeAPI interface {
	Now() time.Time
}

type StandardTime struct{}

func (StandardTime) Now() time.Time {
	return time.Now()
}

// FixedTime always reports the same instant.
type FixedTime time.Time

func (f FixedTime) Now() time.Time {
	return time.Time(f)
}
