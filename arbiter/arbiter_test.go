package arbiter_test

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/test"
	"golang.org/x/sync/errgroup"

	"go.viam.com/sensorkit/arbiter"
	"go.viam.com/sensorkit/logging"
	"go.viam.com/sensorkit/testutils/inject"
)

const proximity = arbiter.Key("proximity")

func newArbiterWithToggle(t *testing.T, key arbiter.Key) (*arbiter.Arbiter, *inject.Toggle) {
	t.Helper()
	a := arbiter.New(logging.NewTestLogger(t))
	toggle := inject.NewToggle()
	test.That(t, a.Register(key, toggle), test.ShouldBeNil)
	return a, toggle
}

func TestSharedAcquireRelease(t *testing.T) {
	a, toggle := newArbiterWithToggle(t, proximity)
	test.That(t, a.Count(proximity), test.ShouldEqual, 0)
	test.That(t, toggle.Enabled(), test.ShouldBeFalse)

	// A starts.
	test.That(t, a.Acquire(proximity), test.ShouldBeTrue)
	test.That(t, toggle.Enabled(), test.ShouldBeTrue)
	test.That(t, a.Count(proximity), test.ShouldEqual, 1)

	// B starts.
	test.That(t, a.Acquire(proximity), test.ShouldBeTrue)
	test.That(t, toggle.Enabled(), test.ShouldBeTrue)
	test.That(t, a.Count(proximity), test.ShouldEqual, 2)

	// A stops; B still needs the flag.
	test.That(t, a.Release(proximity), test.ShouldBeNil)
	test.That(t, toggle.Enabled(), test.ShouldBeTrue)
	test.That(t, a.Count(proximity), test.ShouldEqual, 1)

	// B stops.
	test.That(t, a.Release(proximity), test.ShouldBeNil)
	test.That(t, toggle.Enabled(), test.ShouldBeFalse)
	test.That(t, a.Count(proximity), test.ShouldEqual, 0)

	test.That(t, toggle.SetCalls(), test.ShouldResemble, []bool{true, false})
	enables, disables := a.Transitions(proximity)
	test.That(t, enables, test.ShouldEqual, uint64(1))
	test.That(t, disables, test.ShouldEqual, uint64(1))

	// The cycle can start again after the entry was cleared.
	test.That(t, a.Acquire(proximity), test.ShouldBeTrue)
	test.That(t, a.Count(proximity), test.ShouldEqual, 1)
	test.That(t, a.Release(proximity), test.ShouldBeNil)
	test.That(t, toggle.Enabled(), test.ShouldBeFalse)
}

func TestReleaseWithoutUsers(t *testing.T) {
	a, toggle := newArbiterWithToggle(t, proximity)

	test.That(t, a.Release(proximity), test.ShouldBeNil)
	test.That(t, a.Release(proximity), test.ShouldBeNil)
	test.That(t, a.Count(proximity), test.ShouldEqual, 0)
	// An already disabled flag is never disabled again.
	test.That(t, toggle.SetCalls(), test.ShouldBeEmpty)

	test.That(t, a.Release("never-registered"), test.ShouldBeNil)
}

func TestUnknownAndDuplicateKeys(t *testing.T) {
	a, toggle := newArbiterWithToggle(t, proximity)

	test.That(t, a.Acquire("battery-monitoring"), test.ShouldBeFalse)
	_, err := a.Lease("battery-monitoring")
	test.That(t, errors.Is(err, arbiter.ErrUnknownResource), test.ShouldBeTrue)

	err = a.Register(proximity, inject.NewToggle())
	test.That(t, errors.Is(err, arbiter.ErrAlreadyRegistered), test.ShouldBeTrue)
	test.That(t, a.LoadOrRegister(proximity, inject.NewToggle()), test.ShouldEqual, toggle)

	other := inject.NewToggle()
	test.That(t, a.LoadOrRegister("battery-monitoring", other), test.ShouldEqual, other)
	test.That(t, a.Keys(), test.ShouldResemble, []arbiter.Key{"battery-monitoring", proximity})
}

func TestHardwareUnavailable(t *testing.T) {
	t.Run("enable rejected", func(t *testing.T) {
		a, toggle := newArbiterWithToggle(t, proximity)
		toggle.SetEnabledFunc = func(enabled bool) error {
			return errors.New("no such sensor")
		}

		test.That(t, a.Acquire(proximity), test.ShouldBeFalse)
		test.That(t, a.Count(proximity), test.ShouldEqual, 0)

		_, err := a.Lease(proximity)
		test.That(t, errors.Is(err, arbiter.ErrHardwareUnavailable), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "no such sensor")
	})

	t.Run("flag stays off", func(t *testing.T) {
		a, toggle := newArbiterWithToggle(t, proximity)
		toggle.SetEnabledFunc = func(enabled bool) error { return nil }
		toggle.EnabledFunc = func() bool { return false }

		test.That(t, a.Acquire(proximity), test.ShouldBeFalse)
		test.That(t, a.Count(proximity), test.ShouldEqual, 0)
		enables, _ := a.Transitions(proximity)
		test.That(t, enables, test.ShouldEqual, uint64(0))
	})
}

func TestDisableFailureStillClearsCount(t *testing.T) {
	a, toggle := newArbiterWithToggle(t, proximity)
	test.That(t, a.Acquire(proximity), test.ShouldBeTrue)

	toggle.SetEnabledFunc = func(enabled bool) error { return errors.New("busy") }
	err := a.Release(proximity)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "busy")
	test.That(t, a.Count(proximity), test.ShouldEqual, 0)
	test.That(t, a.Enabled(proximity), test.ShouldBeTrue)
	test.That(t, a.Stuck(proximity), test.ShouldBeTrue)

	// The next user takes over the flag that was left on.
	toggle.SetEnabledFunc = nil
	test.That(t, a.Acquire(proximity), test.ShouldBeTrue)
	test.That(t, a.Stuck(proximity), test.ShouldBeFalse)
	test.That(t, a.Count(proximity), test.ShouldEqual, 1)

	test.That(t, a.Release(proximity), test.ShouldBeNil)
	test.That(t, a.Enabled(proximity), test.ShouldBeFalse)
	test.That(t, a.Stuck(proximity), test.ShouldBeFalse)
	test.That(t, a.Keys(), test.ShouldResemble, []arbiter.Key{proximity})
}

func TestLeaseReleaseIsIdempotent(t *testing.T) {
	a, toggle := newArbiterWithToggle(t, proximity)

	first, err := a.Lease(proximity)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, first.Key(), test.ShouldEqual, proximity)
	second, err := a.Lease(proximity)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, first.Release(), test.ShouldBeNil)
	test.That(t, first.Release(), test.ShouldBeNil)
	test.That(t, a.Count(proximity), test.ShouldEqual, 1)
	test.That(t, toggle.Enabled(), test.ShouldBeTrue)

	test.That(t, second.Release(), test.ShouldBeNil)
	test.That(t, a.Count(proximity), test.ShouldEqual, 0)
	test.That(t, toggle.Enabled(), test.ShouldBeFalse)
}

func TestConcurrentAcquireRelease(t *testing.T) {
	a := arbiter.New(logging.NewTestLogger(t))

	var (
		mu         sync.Mutex
		flag       bool
		violations atomic.Int64
	)
	toggle := inject.NewToggle()
	toggle.EnabledFunc = func() bool {
		mu.Lock()
		defer mu.Unlock()
		return flag
	}
	toggle.SetEnabledFunc = func(enabled bool) error {
		mu.Lock()
		defer mu.Unlock()
		if flag == enabled {
			violations.Inc()
		}
		flag = enabled
		return nil
	}
	test.That(t, a.Register(proximity, toggle), test.ShouldBeNil)

	var group errgroup.Group
	for worker := 0; worker < 8; worker++ {
		group.Go(func() error {
			for i := 0; i < 200; i++ {
				if !a.Acquire(proximity) {
					return errors.New("acquire failed")
				}
				if !a.Enabled(proximity) || a.Count(proximity) == 0 {
					violations.Inc()
				}
				if err := a.Release(proximity); err != nil {
					return err
				}
			}
			return nil
		})
	}
	test.That(t, group.Wait(), test.ShouldBeNil)

	test.That(t, violations.Load(), test.ShouldEqual, int64(0))
	test.That(t, a.Count(proximity), test.ShouldEqual, 0)
	test.That(t, a.Enabled(proximity), test.ShouldBeFalse)
	enables, disables := a.Transitions(proximity)
	test.That(t, enables, test.ShouldEqual, disables)
}
