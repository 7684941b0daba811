package process

// Notes:
// - Killing a live group is covered by the browser integration tests; here
//   only pids that must be refused or do not exist are used.

import (
	"errors"
	"testing"
)

func TestKillGroup_RefusesNonPositive(t *testing.T) {
	t.Parallel()

	for _, pid := range []int{0, -1} {
		if err := KillGroup(pid); !errors.Is(err, ErrInvalidPID) {
			t.Errorf("KillGroup(%d) error = %v, want ErrInvalidPID", pid, err)
		}
	}
}

func TestKillGroup_UnknownPID(t *testing.T) {
	t.Parallel()

	if err := KillGroup(999999999); err == nil {
		t.Error("KillGroup(unknown) error = nil, want failure")
	}
}
