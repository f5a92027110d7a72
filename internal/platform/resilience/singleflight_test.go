package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_SharesOneCallPerKey(t *testing.T) {
	var g SingleFlight
	var counter int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			out, err, _ := g.Do("GET /players/m1", func() (any, error) {
				atomic.AddInt32(&counter, 1)
				time.Sleep(20 * time.Millisecond)
				return "payload", nil
			})
			if err != nil {
				t.Errorf("shared call failed: %v", err)
			}
			if out != "payload" {
				t.Errorf("out = %v, want shared payload", out)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&counter); got != 1 {
		t.Fatalf("fn ran %d times, want once", got)
	}
}

func TestSingleFlight_KeysAreIndependent(t *testing.T) {
	var g SingleFlight
	var counter int32

	for _, key := range []string{"GET /players/m1", "GET /counts/m1"} {
		if _, err, shared := g.Do(key, func() (any, error) {
			atomic.AddInt32(&counter, 1)
			return nil, nil
		}); err != nil || shared {
			t.Fatalf("key %q: err=%v shared=%t", key, err, shared)
		}
	}

	if counter != 2 {
		t.Fatalf("fn ran %d times, want once per key", counter)
	}
}
