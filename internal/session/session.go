package session

import "time"

// Session records a running `limitedwip watch` for one working copy. It is
// bookkeeping only: engine state is never written to disk.
type Session struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	WorkDir   string    `json:"work_dir"`
	PID       int       `json:"pid"`
}
