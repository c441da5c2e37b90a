package core

import "time"

// ClientWindowState captures the fixed-window counter tracked per client.
type ClientWindowState struct {
	Count     int
	ResetTime time.Time
}

// Expired reports whether the window has elapsed at now.
func (s ClientWindowState) Expired(now time.Time) bool {
	return now.After(s.ResetTime)
}
