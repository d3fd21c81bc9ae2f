package testutil

import "testing"

// Given runs fn as a subtest named after the precondition it sets up.
func Given(t *testing.T, precondition string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("given "+precondition, fn)
}
