package singleflight

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoCoalescesConcurrentCalls(t *testing.T) {
	group := New()

	ownerStarted := make(chan struct{})
	release := make(chan struct{})

	var ownerResult interface{}
	var ownerDone sync.WaitGroup
	ownerDone.Add(1)
	go func() {
		defer ownerDone.Done()
		ownerResult, _ = group.Do("key", func() (interface{}, error) {
			close(ownerStarted)
			<-release
			return "owner", nil
		})
	}()
	<-ownerStarted

	// Every waiter entering Do while the owner is in flight must share the
	// owner's result instead of executing its own function.
	var wg sync.WaitGroup
	const waiters = 19
	results := make([]interface{}, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := group.Do("key", func() (interface{}, error) {
				return "waiter", nil
			})
			if err != nil {
				t.Errorf("Do() error = %v", err)
			}
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	ownerDone.Wait()

	if ownerResult != "owner" {
		t.Errorf("owner got %v, want \"owner\"", ownerResult)
	}
	for i, v := range results {
		if v != "owner" {
			t.Errorf("waiter %d got %v, want the owner's result", i, v)
		}
	}
}

func TestDoDistinctKeysRunIndependently(t *testing.T) {
	group := New()

	var calls atomic.Int32
	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			if _, err := group.Do(key, func() (interface{}, error) {
				calls.Add(1)
				return key, nil
			}); err != nil {
				t.Errorf("Do(%q) error = %v", key, err)
			}
		}(key)
	}
	wg.Wait()

	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 executions, got %d", got)
	}
}

func TestDoForgetsCompletedCalls(t *testing.T) {
	group := New()

	failure := errors.New("first attempt fails")

	if _, err := group.Do("key", func() (interface{}, error) {
		return nil, failure
	}); !errors.Is(err, failure) {
		t.Fatalf("expected propagated failure, got %v", err)
	}

	// A completed call is forgotten; the next Do executes fresh.
	v, err := group.Do("key", func() (interface{}, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if v != 42 {
		t.Errorf("expected fresh execution result 42, got %v", v)
	}
}
