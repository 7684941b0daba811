// Package process stops the browser process tree left behind by a renderer.
package process

import "errors"

// ErrInvalidPID is returned for pids that would signal the caller's own
// process group or every process.
var ErrInvalidPID = errors.New("invalid pid")
