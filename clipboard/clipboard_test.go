package clipboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCopyWithoutBackend(t *testing.T) {
	if Available() {
		t.Skip("clipboard backend present")
	}
	assert.ErrorIs(t, Copy("hello"), ErrUnavailable)
}
