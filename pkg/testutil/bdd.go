package testutil

import "testing"

// Given, When, Then and And name subtests after their step so a scenario
// reads top to bottom in test output. A step whose earlier sibling already
// failed is skipped, so one broken precondition reports once.
func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "Then", desc, fn)
}

func And(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "And", desc, fn)
}

func step(t *testing.T, keyword, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	skip := t.Failed()
	return t.Run(keyword+" "+desc, func(t *testing.T) {
		t.Helper()
		if skip {
			t.Skipf("%s %s: an earlier step failed", keyword, desc)
		}
		fn(t)
	})
}
