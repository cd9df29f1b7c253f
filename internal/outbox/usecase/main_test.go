package usecase

import (
	"testing"

	"go.uber.org/goleak"
)

// The publisher starts ticker loops; every test in this package must leave
// no goroutine behind once its context is done.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
