package models

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts the extended six-field grammar with a leading seconds
// column, plus @descriptors. Evaluation is in UTC.
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateCron parses the expression, returning an error suitable for a
// 400 response when it is not a valid schedule.
func ValidateCron(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// NextRun returns the next fire instant strictly after the given time, in
// UTC. The zero time means the expression has no future firings.
func NextRun(expr string, after time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule.Next(after.UTC()), nil
}
