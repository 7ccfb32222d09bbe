package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"billbot/internal/domain"
)

func TestMemoryRepository_PutGetDelete(t *testing.T) {
	repo := NewMemoryRepository(30 * time.Minute)
	ctx := context.Background()

	s := &domain.Session{
		Identity:        "5511998887766",
		Stage:           domain.StageMenu,
		LastInteraction: time.Now(),
	}
	if err := repo.Put(ctx, s); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := repo.Get(ctx, s.Identity)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Stage != domain.StageMenu {
		t.Fatalf("Get = %+v", got)
	}

	// Mutating the returned copy must not leak into the store.
	got.Stage = domain.StageBlocked
	again, _ := repo.Get(ctx, s.Identity)
	if again.Stage != domain.StageMenu {
		t.Error("repository returned a shared pointer")
	}

	if err := repo.Delete(ctx, s.Identity); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	gone, _ := repo.Get(ctx, s.Identity)
	if gone != nil {
		t.Error("expected nil after delete")
	}
}

func TestMemoryRepository_IsExpired(t *testing.T) {
	repo := NewMemoryRepository(30 * time.Minute)
	ctx := context.Background()
	now := time.Now()
	repo.now = func() time.Time { return now }

	cases := []struct {
		name    string
		session *domain.Session
		want    bool
	}{
		{"missing", nil, true},
		{"no stamp", &domain.Session{Identity: "a"}, true},
		{"fresh", &domain.Session{Identity: "b", LastInteraction: now.Add(-time.Minute)}, false},
		{"at limit", &domain.Session{Identity: "c", LastInteraction: now.Add(-30 * time.Minute)}, false},
		{"past limit", &domain.Session{Identity: "d", LastInteraction: now.Add(-31 * time.Minute)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := domain.Identity(tc.name)
			if tc.session != nil {
				tc.session.Identity = id
				if err := repo.Put(ctx, tc.session); err != nil {
					t.Fatal(err)
				}
			}
			got, err := repo.IsExpired(ctx, id)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("IsExpired = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLocker_SerializesSameIdentity(t *testing.T) {
	l := NewLocker()
	var (
		mu      sync.Mutex
		running int
		max     int
	)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := l.Acquire("same")
			defer release()

			mu.Lock()
			running++
			if running > max {
				max = running
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if max != 1 {
		t.Errorf("expected serialized turns for one identity, saw %d concurrent", max)
	}
}

// Released identities must not accumulate: the lock map holds only
// identities with turns in flight.
func TestLocker_EvictsOnRelease(t *testing.T) {
	l := NewLocker()

	for i := 0; i < 100; i++ {
		release := l.Acquire(domain.Identity(string(rune('a' + i%26))))
		release()
	}

	l.mu.Lock()
	size := len(l.locks)
	l.mu.Unlock()
	if size != 0 {
		t.Errorf("lock map holds %d entries after all releases, want 0", size)
	}

	// A contended entry stays until its last holder releases.
	releaseA := l.Acquire("held")
	done := make(chan struct{})
	go func() {
		release := l.Acquire("held")
		release()
		close(done)
	}()

	l.mu.Lock()
	if _, ok := l.locks["held"]; !ok {
		t.Error("in-flight identity evicted early")
	}
	l.mu.Unlock()

	releaseA()
	<-done

	l.mu.Lock()
	if _, ok := l.locks["held"]; ok {
		t.Error("identity not evicted after final release")
	}
	l.mu.Unlock()
}

func TestLocker_DistinctIdentitiesProceed(t *testing.T) {
	l := NewLocker()
	releaseA := l.Acquire("a")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		release := l.Acquire("b")
		release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("identity b blocked behind identity a")
	}
}
