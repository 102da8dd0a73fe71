package system

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/sensorkit/config"
	"go.viam.com/sensorkit/logging"
	"go.viam.com/sensorkit/property"
	"go.viam.com/sensorkit/registry"
	"go.viam.com/sensorkit/source"
	"go.viam.com/sensorkit/sources/fake"
	"go.viam.com/sensorkit/utils"
)

func newConfig(mode config.DeliveryMode, sources ...registry.Config) *config.Config {
	return &config.Config{Delivery: config.DeliveryConfig{Mode: mode}, Sources: sources}
}

type recorder struct {
	mu      sync.Mutex
	updates []string
	events  []string
}

func (r *recorder) onUpdate(src registry.Source, update source.PropertiesUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update.Property.ID().String())
}

func (r *recorder) onEvent(src registry.Source, event source.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, src.ID().String()+" "+event.Kind.String())
}

func (r *recorder) snapshot() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.updates...), append([]string(nil), r.events...)
}

func TestSystemLifecycle(t *testing.T) {
	for _, mode := range []config.DeliveryMode{config.DeliverySerial, config.DeliveryInline} {
		t.Run(string(mode), func(t *testing.T) {
			logger := logging.NewTestLogger(t)
			mock := clock.NewMock()
			cfg := newConfig(mode,
				registry.Config{
					Name:       "front",
					Kind:       fake.ProximityKind,
					Attributes: utils.AttributeMap{"interval": "10ms", "readings": []interface{}{true}},
				},
				registry.Config{
					Name:       "main",
					Kind:       fake.ScreenKind,
					Attributes: utils.AttributeMap{"interval": "10ms", "brightness": 0.25},
				},
			)
			sys, err := New(context.Background(), cfg, mock, logger)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, sys.Sources(), test.ShouldHaveLength, 2)
			test.That(t, sys.Controllables(), test.ShouldHaveLength, 2)

			front, ok := sys.Source(property.NewID("fake", "proximity", "front"))
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, front.DisplayName(), test.ShouldEqual, "Proximity front")
			_, ok = sys.Source(property.NewID("fake", "proximity", "rear"))
			test.That(t, ok, test.ShouldBeFalse)

			rec := &recorder{}
			sys.Watch(rec.onUpdate, rec.onEvent)

			test.That(t, sys.StartAll(context.Background()), test.ShouldBeNil)
			test.That(t, sys.Arbiter().Enabled(fake.ProximityResource), test.ShouldBeTrue)

			testutils.WaitForAssertion(t, func(tb testing.TB) {
				tb.Helper()
				mock.Add(10 * time.Millisecond)
				test.That(tb, sys.Sync(context.Background()), test.ShouldBeNil)
				updates, _ := rec.snapshot()
				test.That(tb, updates, test.ShouldContain, "fake:proximity/front#near")
				test.That(tb, updates, test.ShouldContain, "fake:screen/main#brightness")
			})

			sys.StopAll()
			test.That(t, sys.Arbiter().Enabled(fake.ProximityResource), test.ShouldBeFalse)
			test.That(t, sys.Sync(context.Background()), test.ShouldBeNil)
			_, events := rec.snapshot()
			test.That(t, events, test.ShouldContain, "fake:proximity/front started_updating")
			test.That(t, events, test.ShouldContain, "fake:screen/main stopped_updating")

			test.That(t, sys.Close(context.Background()), test.ShouldBeNil)
			test.That(t, sys.Sources(), test.ShouldBeEmpty)
		})
	}
}

func TestSystemStartFailure(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := newConfig("",
		registry.Config{Name: "front", Kind: fake.ProximityKind, Attributes: utils.AttributeMap{"missing": true}},
		registry.Config{Name: "main", Kind: fake.ScreenKind},
	)
	sys, err := New(context.Background(), cfg, clock.NewMock(), logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, sys.Close(context.Background()), test.ShouldBeNil)
	}()

	err = sys.StartAll(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "starting fake:proximity/front")

	for _, c := range sys.Controllables() {
		test.That(t, c.IsUpdating(), test.ShouldEqual, c.ID().Equal(property.NewID("fake", "screen", "main")))
	}
}

func TestSystemBuildFailure(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := newConfig("",
		registry.Config{Name: "main", Kind: fake.ScreenKind},
		registry.Config{Name: "bad", Kind: fake.ScreenKind, Attributes: utils.AttributeMap{"brightness": 3.0}},
	)
	_, err := New(context.Background(), cfg, clock.NewMock(), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to build sources")
	test.That(t, err.Error(), test.ShouldContainSubstring, "out of range")
}

func TestSystemCanceledStart(t *testing.T) {
	logger := logging.NewTestLogger(t)
	sys, err := New(context.Background(), newConfig(config.DeliveryInline,
		registry.Config{Name: "main", Kind: fake.ScreenKind},
	), clock.NewMock(), logger)
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	test.That(t, sys.StartAll(ctx), test.ShouldBeError, context.Canceled)
	test.That(t, sys.Close(context.Background()), test.ShouldBeNil)
}
