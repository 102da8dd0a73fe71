package property

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
	"golang.org/x/sync/errgroup"

	"go.viam.com/sensorkit/dispatch"
	"go.viam.com/sensorkit/logging"
)

var screenID = NewID(NamespaceOS, "screen", "main")

func TestNewPropertyIsUnobserved(t *testing.T) {
	p := New[float64](screenID.Child("brightness"), "Brightness", Percent())

	_, ok := p.Snapshot()
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = p.Value()
	test.That(t, ok, test.ShouldBeFalse)
	_, err := p.Formatted()
	test.That(t, err, test.ShouldBeError, ErrNotObserved)
}

func TestOptionalValueObservedAsEmpty(t *testing.T) {
	p := New[*string](screenID.Child("owner"), "Owner", Optional(Default[string](), "none"))

	_, ok := p.Value()
	test.That(t, ok, test.ShouldBeFalse)

	p.Update(nil, time.Unix(1, 0))
	value, ok := p.Value()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, value, test.ShouldBeNil)
	formatted, err := p.Formatted()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, formatted, test.ShouldEqual, "none")
}

func TestUpdate(t *testing.T) {
	p := New[int](screenID.Child("count"), "Count", nil)

	var notified []Snapshot[int]
	token := p.Subscribe(func(s Snapshot[int]) { notified = append(notified, s) })
	defer token.Unsubscribe()

	t0 := time.Unix(100, 0)
	returned := p.Update(3, t0)
	test.That(t, returned, test.ShouldResemble, Snapshot[int]{Value: 3, CapturedAt: t0})

	current, ok := p.Snapshot()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, current.Equal(returned), test.ShouldBeTrue)
	test.That(t, notified, test.ShouldHaveLength, 1)
	test.That(t, notified[0].Equal(current), test.ShouldBeTrue)

	// Update always notifies, even for an equal value.
	p.Update(3, t0.Add(time.Second))
	test.That(t, notified, test.ShouldHaveLength, 2)
}

func TestUpdateIfDifferentBrightness(t *testing.T) {
	t0 := time.Unix(0, 0)
	t1 := t0.Add(time.Second)
	t2 := t1.Add(time.Second)

	p := New[float64](screenID.Child("brightness"), "Brightness", Percent())
	p.Update(0.2, t0)

	var notified []Snapshot[float64]
	token := p.Subscribe(func(s Snapshot[float64]) { notified = append(notified, s) })
	defer token.Unsubscribe()

	_, updated := p.UpdateIfDifferent(0.2, t1)
	test.That(t, updated, test.ShouldBeFalse)
	test.That(t, notified, test.ShouldBeEmpty)
	current, _ := p.Snapshot()
	test.That(t, current, test.ShouldResemble, Snapshot[float64]{Value: 0.2, CapturedAt: t0})

	snapshot, updated := p.UpdateIfDifferent(0.5, t2)
	test.That(t, updated, test.ShouldBeTrue)
	test.That(t, snapshot, test.ShouldResemble, Snapshot[float64]{Value: 0.5, CapturedAt: t2})
	test.That(t, notified, test.ShouldResemble, []Snapshot[float64]{{Value: 0.5, CapturedAt: t2}})

	formatted, err := p.Formatted()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, formatted, test.ShouldEqual, "50%")
}

func TestUpdateIfDifferentFirstObservation(t *testing.T) {
	p := New[int](screenID.Child("count"), "Count", nil)
	// The zero value has never been observed, so it is a change.
	_, updated := p.UpdateIfDifferent(0, time.Unix(1, 0))
	test.That(t, updated, test.ShouldBeTrue)
	_, updated = p.UpdateIfDifferent(0, time.Unix(2, 0))
	test.That(t, updated, test.ShouldBeFalse)
}

type reading struct {
	x, y float64
	at   time.Time
}

func TestUpdateIfDifferentStructural(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := New[reading](screenID.Child("tilt"), "Tilt", nil)
	p.Update(reading{1, 2, base}, base)

	// Unexported fields and time.Time values compare structurally.
	_, updated := p.UpdateIfDifferent(reading{1, 2, base.In(time.FixedZone("x", 3600))}, base.Add(time.Second))
	test.That(t, updated, test.ShouldBeFalse)
	_, updated = p.UpdateIfDifferent(reading{1, 3, base}, base.Add(time.Second))
	test.That(t, updated, test.ShouldBeTrue)
}

func TestWithEqual(t *testing.T) {
	withinTenth := func(a, b float64) bool { return math.Abs(a-b) < 0.1 }
	p := New[float64](screenID.Child("brightness"), "Brightness", Percent(), WithEqual(withinTenth))
	p.Update(0.5, time.Unix(0, 0))

	_, updated := p.UpdateIfDifferent(0.55, time.Unix(1, 0))
	test.That(t, updated, test.ShouldBeFalse)
	_, updated = p.UpdateIfDifferent(0.7, time.Unix(2, 0))
	test.That(t, updated, test.ShouldBeTrue)

	test.That(t, func() {
		New[int](screenID.Child("count"), "Count", nil, WithEqual(withinTenth))
	}, test.ShouldPanic)
}

func TestUpdateNowUsesClock(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	p := New[bool](NewID(NamespaceOS, "proximity", "front").Child("near"), "Near", Bool("near", "far"),
		WithClock(mock), WithInitial(false, mock.Now()))

	value, ok := p.Value()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, value, test.ShouldBeFalse)

	mock.Add(time.Minute)
	snapshot := p.UpdateNow(true)
	test.That(t, snapshot.CapturedAt, test.ShouldEqual, mock.Now())
	formatted, err := p.Formatted()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, formatted, test.ShouldEqual, "near")
}

func TestDeliveryOrderAcrossProducers(t *testing.T) {
	queue := dispatch.NewSerialQueue(logging.NewTestLogger(t))
	defer queue.Close()
	p := New[int](screenID.Child("count"), "Count", nil, WithQueue(queue))

	var delivered []Snapshot[int]
	token := p.Subscribe(func(s Snapshot[int]) { delivered = append(delivered, s) })
	defer token.Unsubscribe()

	mock := clock.NewMock()
	var group errgroup.Group
	for g := 0; g < 4; g++ {
		group.Go(func() error {
			for i := 0; i < 50; i++ {
				p.Update(i, mock.Now())
			}
			return nil
		})
	}
	test.That(t, group.Wait(), test.ShouldBeNil)
	test.That(t, queue.Sync(context.Background()), test.ShouldBeNil)

	test.That(t, delivered, test.ShouldHaveLength, 200)
	// The last delivered snapshot is the stored one: no tearing between storage and delivery.
	current, _ := p.Snapshot()
	test.That(t, delivered[len(delivered)-1], test.ShouldResemble, current)
}
