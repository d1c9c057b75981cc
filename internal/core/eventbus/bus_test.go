package eventbus

import (
	"testing"
	"time"

	pkgif "github.com/dep2p/go-registry/pkg/interfaces"
	"github.com/dep2p/go-registry/pkg/types"
)

var (
	_ pkgif.EventBus     = (*Bus)(nil)
	_ pkgif.Subscription = (*Subscription)(nil)
	_ pkgif.Emitter      = (*Emitter)(nil)
)

func TestBus_EmitDeliversToSubscriber(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer sub.Close()

	em, err := bus.Emitter()
	if err != nil {
		t.Fatalf("Emitter() failed: %v", err)
	}
	defer em.Close()

	node := types.NewNodeID()
	want := types.NodeEvent{Kind: types.NodeUp, Node: node, At: types.NowTime()}

	if err := em.Emit(want); err != nil {
		t.Errorf("Emit() failed: %v", err)
	}

	select {
	case got := <-sub.Out():
		if got.Kind != types.NodeUp || !got.Node.Equal(node) {
			t.Errorf("received event %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBus_FansOutToEverySubscriber(t *testing.T) {
	bus := NewBus()

	sub1, _ := bus.Subscribe()
	defer sub1.Close()
	sub2, _ := bus.Subscribe()
	defer sub2.Close()

	em, _ := bus.Emitter()
	defer em.Close()

	node := types.NewNodeID()
	em.Emit(types.NodeEvent{Kind: types.NodeDown, Node: node})

	for _, sub := range []pkgif.Subscription{sub1, sub2} {
		select {
		case got := <-sub.Out():
			if got.Kind != types.NodeDown || !got.Node.Equal(node) {
				t.Errorf("received %+v, want NodeDown for %v", got, node)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for fan-out delivery")
		}
	}
}

func TestBus_CloseStopsDelivery(t *testing.T) {
	bus := NewBus()

	sub, _ := bus.Subscribe()
	em, _ := bus.Emitter()
	defer em.Close()

	if err := sub.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	em.Emit(types.NodeEvent{Kind: types.NodeUp, Node: types.NewNodeID()})

	select {
	case _, ok := <-sub.Out():
		if ok {
			t.Error("received an event on a closed subscription")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("closed subscription's channel was never closed")
	}
}

func TestBus_CloseIsIdempotent(t *testing.T) {
	bus := NewBus()
	sub, _ := bus.Subscribe()

	if err := sub.Close(); err != nil {
		t.Fatalf("first Close() failed: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}
}

func TestEmitter_EmitAfterCloseFails(t *testing.T) {
	bus := NewBus()
	em, _ := bus.Emitter()

	if err := em.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := em.Emit(types.NodeEvent{}); err != ErrClosed {
		t.Errorf("Emit() after Close() = %v, want ErrClosed", err)
	}
}

func TestBus_SlowSubscriberDropsRatherThanBlocks(t *testing.T) {
	bus := NewBus()
	sub, _ := bus.Subscribe() // never drained
	defer sub.Close()

	em, _ := bus.Emitter()
	defer em.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			em.Emit(types.NodeEvent{Kind: types.NodeUp, Node: types.NewNodeID()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full subscriber buffer instead of dropping")
	}
}
