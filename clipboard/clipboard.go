// Package clipboard copies transcript text to the system clipboard.
package clipboard

import (
	"errors"

	cb "github.com/atotto/clipboard"
)

// ErrUnavailable means no clipboard backend (xclip, xsel, wl-copy, ...) was
// found at startup.
var ErrUnavailable = errors.New("no clipboard utility available")

func Available() bool { return !cb.Unsupported }

func Copy(text string) error {
	if !Available() {
		return ErrUnavailable
	}
	return cb.WriteAll(text)
}
