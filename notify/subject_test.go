package notify

import (
	"context"
	"sync"
	"testing"

	"go.viam.com/test"
	"golang.org/x/sync/errgroup"

	"go.viam.com/sensorkit/dispatch"
	"go.viam.com/sensorkit/logging"
)

func TestNotifyWithoutListeners(t *testing.T) {
	subject := NewSubject[int](nil)
	test.That(t, subject.Notify(1), test.ShouldBeNil)
	test.That(t, subject.Published(), test.ShouldEqual, uint64(0))
	test.That(t, subject.Len(), test.ShouldEqual, 0)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	subject := NewSubject[int](nil)

	var first, second []int
	token1 := subject.Subscribe(func(v int) { first = append(first, v) })
	token2 := subject.Subscribe(func(v int) { second = append(second, v) })
	test.That(t, token1.ID(), test.ShouldNotEqual, token2.ID())
	test.That(t, subject.Len(), test.ShouldEqual, 2)

	test.That(t, subject.Notify(1), test.ShouldBeNil)
	token1.Unsubscribe()
	token1.Unsubscribe()
	test.That(t, subject.Notify(2), test.ShouldBeNil)

	test.That(t, first, test.ShouldResemble, []int{1})
	test.That(t, second, test.ShouldResemble, []int{1, 2})
	test.That(t, subject.Len(), test.ShouldEqual, 1)

	token2.Unsubscribe()
	test.That(t, subject.Notify(3), test.ShouldBeNil)
	test.That(t, second, test.ShouldResemble, []int{1, 2})
}

func TestUnsubscribeDuringDelivery(t *testing.T) {
	subject := NewSubject[string](nil)

	var (
		seenA, seenB, seenC []string
		tokenB              *Token
	)
	subject.Subscribe(func(v string) {
		seenA = append(seenA, v)
		// A removes B before B's turn in the same delivery.
		tokenB.Unsubscribe()
	})
	tokenB = subject.Subscribe(func(v string) { seenB = append(seenB, v) })
	var tokenC *Token
	tokenC = subject.Subscribe(func(v string) {
		seenC = append(seenC, v)
		// C removes itself mid-delivery.
		tokenC.Unsubscribe()
	})

	test.That(t, subject.Notify("x"), test.ShouldBeNil)
	test.That(t, subject.Notify("y"), test.ShouldBeNil)

	test.That(t, seenA, test.ShouldResemble, []string{"x", "y"})
	test.That(t, seenB, test.ShouldBeEmpty)
	test.That(t, seenC, test.ShouldResemble, []string{"x"})
}

func TestSubscribeDuringDelivery(t *testing.T) {
	subject := NewSubject[int](nil)

	var late []int
	var once sync.Once
	subject.Subscribe(func(v int) {
		once.Do(func() {
			subject.Subscribe(func(v int) { late = append(late, v) })
		})
	})

	test.That(t, subject.Notify(1), test.ShouldBeNil)
	test.That(t, subject.Notify(2), test.ShouldBeNil)
	// A listener added mid-delivery only sees later values.
	test.That(t, late, test.ShouldResemble, []int{2})
}

func TestConcurrentSubscribersOnSerialQueue(t *testing.T) {
	queue := dispatch.NewSerialQueue(logging.NewTestLogger(t))
	defer queue.Close()
	subject := NewSubject[int](queue)

	var received []int
	keep := subject.Subscribe(func(v int) { received = append(received, v) })
	defer keep.Unsubscribe()

	var group errgroup.Group
	group.Go(func() error {
		for i := 0; i < 500; i++ {
			if err := subject.Notify(i); err != nil {
				return err
			}
		}
		return nil
	})
	for g := 0; g < 4; g++ {
		group.Go(func() error {
			for i := 0; i < 100; i++ {
				token := subject.Subscribe(func(int) {})
				token.Unsubscribe()
			}
			return nil
		})
	}
	test.That(t, group.Wait(), test.ShouldBeNil)
	test.That(t, queue.Sync(context.Background()), test.ShouldBeNil)

	// Single producer: every value arrives exactly once and in order.
	test.That(t, received, test.ShouldHaveLength, 500)
	for i, v := range received {
		test.That(t, v, test.ShouldEqual, i)
	}
	test.That(t, subject.Len(), test.ShouldEqual, 1)
}

func TestBag(t *testing.T) {
	subject := NewSubject[int](nil)
	count := 0

	var bag Bag
	bag.Add(
		subject.Subscribe(func(int) { count++ }),
		subject.Subscribe(func(int) { count++ }),
	)
	test.That(t, bag.Len(), test.ShouldEqual, 2)
	test.That(t, subject.Notify(1), test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, 2)

	bag.Clear()
	test.That(t, bag.Len(), test.ShouldEqual, 0)
	test.That(t, subject.Notify(2), test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, 2)

	var nilToken *Token
	nilToken.Unsubscribe()
}
