package auth

import (
	"sync"
	"testing"
	"time"
)

func TestStateStore(t *testing.T) {
	t.Run("Issue Returns Unique URL Safe Values", func(t *testing.T) {
		store := NewStateStore(0)
		seen := map[string]bool{}

		for range 50 {
			state, err := store.Issue()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(state) != 43 {
				t.Errorf("expected 43 char state, got %d", len(state))
			}
			for _, r := range state {
				if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
					t.Fatalf("state %q contains non URL-safe rune %q", state, r)
				}
			}
			if seen[state] {
				t.Fatalf("duplicate state %s", state)
			}
			seen[state] = true
		}

		if store.Len() != 50 {
			t.Errorf("expected 50 pending states, got %d", store.Len())
		}
	})

	t.Run("Consume Is Single Use", func(t *testing.T) {
		store := NewStateStore(time.Minute)
		state, _ := store.Issue()

		if !store.Consume(state) {
			t.Fatal("expected first consume to succeed")
		}
		if store.Consume(state) {
			t.Error("expected second consume to fail")
		}
	})

	t.Run("Consume Unknown And Empty", func(t *testing.T) {
		store := NewStateStore(time.Minute)
		if store.Consume("never-issued") {
			t.Error("expected unknown state to fail")
		}
		if store.Consume("") {
			t.Error("expected empty state to fail")
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		store := NewStateStore(DefaultStateTTL)
		store.now = func() time.Time { return now }

		state, _ := store.Issue()

		now = now.Add(DefaultStateTTL + time.Second)
		if store.Consume(state) {
			t.Error("expected expired state to fail")
		}
		if store.Len() != 0 {
			t.Error("expected expired state to be removed")
		}
	})

	t.Run("Boundary Is Inclusive", func(t *testing.T) {
		now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		store := NewStateStore(time.Minute)
		store.now = func() time.Time { return now }

		state, _ := store.Issue()
		now = now.Add(time.Minute)
		if !store.Consume(state) {
			t.Error("expected state at exactly the TTL to be accepted")
		}
	})

	t.Run("Issue Sweeps Expired", func(t *testing.T) {
		now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		store := NewStateStore(time.Minute)
		store.now = func() time.Time { return now }

		store.Issue()
		store.Issue()
		now = now.Add(2 * time.Minute)
		fresh, _ := store.Issue()

		if store.Len() != 1 {
			t.Errorf("expected only the fresh state to remain, got %d", store.Len())
		}
		if !store.Consume(fresh) {
			t.Error("expected fresh state to be consumable")
		}
	})

	t.Run("Sweep", func(t *testing.T) {
		now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		store := NewStateStore(time.Minute)
		store.now = func() time.Time { return now }

		store.Issue()
		now = now.Add(time.Hour)
		store.Sweep()

		if store.Len() != 0 {
			t.Errorf("expected sweep to clear expired states, got %d", store.Len())
		}
	})

	t.Run("Concurrent Consume Succeeds Once", func(t *testing.T) {
		store := NewStateStore(time.Minute)
		state, _ := store.Issue()

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if store.Consume(state) {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if wins != 1 {
			t.Errorf("expected exactly one successful consume, got %d", wins)
		}
	})
}
