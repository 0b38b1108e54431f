package testkit

import "testing"

// Swap replaces *target for the duration of t and restores the previous value on cleanup
func Swap[T any](t testing.TB, target *T, replacement T) {
	t.Helper()
	prev := *target
	*target = replacement
	t.Cleanup(func() { *target = prev })
}

// ClearEnv blanks each key for the duration of t. Config treats empty as unset,
// and code under test that calls os.Setenv on these keys is rolled back too.
// Tests using it cannot run in parallel
func ClearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}
