package observable

import (
	"sync"
	"testing"
	"time"
)

func TestValueGetSet(t *testing.T) {
	v := NewValue("0:00")
	if got := v.Get(); got != "0:00" {
		t.Errorf("Get() = %q, want 0:00", got)
	}
	v.Set("5:33")
	if got := v.Get(); got != "5:33" {
		t.Errorf("Get() = %q, want 5:33", got)
	}
}

func TestSubscribeReceivesCurrentThenUpdates(t *testing.T) {
	v := NewValue(1)
	ch, cancel := v.Subscribe()
	defer cancel()

	if got := <-ch; got != 1 {
		t.Fatalf("first value = %d, want 1", got)
	}

	v.Set(2)
	select {
	case got := <-ch:
		if got != 2 {
			t.Errorf("update = %d, want 2", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for update")
	}
}

func TestSlowSubscriberSeesOnlyLatest(t *testing.T) {
	v := NewValue(0)
	ch, cancel := v.Subscribe()
	defer cancel()

	for i := 1; i <= 50; i++ {
		v.Set(i)
	}

	if got := <-ch; got != 50 {
		t.Errorf("pending value = %d, want 50", got)
	}
	select {
	case got := <-ch:
		t.Errorf("unexpected extra value %d", got)
	default:
	}
}

func TestSetSameValueDoesNotNotify(t *testing.T) {
	v := NewValue(true)
	ch, cancel := v.Subscribe()
	defer cancel()
	<-ch

	v.Set(true)
	select {
	case got := <-ch:
		t.Errorf("unexpected notification %v", got)
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	v := NewValue(0)
	ch, cancel := v.Subscribe()
	<-ch
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel still open after cancel")
	}
	if n := v.Subscribers(); n != 0 {
		t.Errorf("Subscribers() = %d, want 0", n)
	}
	v.Set(3)
}

func TestSubscriberOrderingIsMonotonic(t *testing.T) {
	v := NewValue(0)
	ch, cancel := v.Subscribe()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		last := -1
		for got := range ch {
			if got < last {
				t.Errorf("received %d after %d", got, last)
			}
			last = got
			if got == 1000 {
				return
			}
		}
	}()

	for i := 1; i <= 1000; i++ {
		v.Set(i)
	}
	wg.Wait()
	cancel()
}
