// Package clock provides the default collab.Clock, a thin wrapper over
// time.Now.
package clock

import "time"

// System is the default collab.Clock.
type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

func (System) NowSeconds() int64 {
	return time.Now().Unix()
}
