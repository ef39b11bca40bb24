package service

import "time"

// Clock yields the current time. Services store UTC timestamps only.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
