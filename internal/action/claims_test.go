package action

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryClaimsFirstWins(t *testing.T) {
	c := NewMemoryClaims(time.Minute)

	first, err := c.Claim(context.Background(), "open:7")
	if err != nil || !first {
		t.Fatalf("first claim = (%v, %v), want (true, nil)", first, err)
	}

	second, err := c.Claim(context.Background(), "open:7")
	if err != nil || second {
		t.Fatalf("second claim = (%v, %v), want (false, nil)", second, err)
	}

	// Different token is independent.
	other, err := c.Claim(context.Background(), "open:8")
	if err != nil || !other {
		t.Fatalf("other token claim = (%v, %v), want (true, nil)", other, err)
	}
}

func TestMemoryClaimsExpiry(t *testing.T) {
	c := NewMemoryClaims(time.Minute)

	base := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	now := base
	c.now = func() time.Time { return now }

	if first, _ := c.Claim(context.Background(), "open:7"); !first {
		t.Fatal("initial claim refused")
	}

	now = base.Add(30 * time.Second)
	if first, _ := c.Claim(context.Background(), "open:7"); first {
		t.Fatal("claim granted inside TTL")
	}

	// The next call event for the same door arrives after the window.
	now = base.Add(2 * time.Minute)
	if first, _ := c.Claim(context.Background(), "open:7"); !first {
		t.Fatal("claim refused after TTL")
	}
}

func TestMemoryClaimsConcurrent(t *testing.T) {
	c := NewMemoryClaims(time.Minute)

	const workers = 64
	var (
		wg     sync.WaitGroup
		firsts atomic.Int64
	)

	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			first, err := c.Claim(context.Background(), "ignore:42")
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			if first {
				firsts.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if firsts.Load() != 1 {
		t.Fatalf("first claimants = %d, want exactly 1", firsts.Load())
	}
}
