package eventbus

import "testing"

func TestTypedBusPublishSubscribe(t *testing.T) {
	bus := NewTyped[string](0)
	ch := bus.Subscribe()
	bus.Publish("hello")
	v := <-ch
	if v != "hello" {
		t.Fatalf("expected hello got %v", v)
	}
	bus.Unsubscribe(ch)
}

func TestTypedBusBufferSize(t *testing.T) {
	bus := NewTyped[int](2)
	ch := bus.Subscribe()
	bus.Publish(1)
	bus.Publish(2)
	bus.Publish(3) // dropped, buffer full
	if v := <-ch; v != 1 {
		t.Fatalf("expected 1 got %d", v)
	}
	if v := <-ch; v != 2 {
		t.Fatalf("expected 2 got %d", v)
	}
	select {
	case v := <-ch:
		t.Fatalf("expected no third event, got %d", v)
	default:
	}
}

func TestTypedBusClose(t *testing.T) {
	bus := NewTyped[int](0)
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	if _, ok := <-ch1; ok {
		t.Fatalf("expected ch1 closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatalf("expected ch2 closed")
	}
}

func TestTypedBusUnsubscribeAfterClose(t *testing.T) {
	bus := NewTyped[float64](0)
	ch := bus.Subscribe()
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}
