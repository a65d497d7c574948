package store

import (
	"errors"
	"sync"
	"testing"
)

func TestKeyedUpdateCreatesLazily(t *testing.T) {
	calls := 0
	k := NewKeyed(func() int {
		calls++
		return 5
	})

	if k.Exists("a") {
		t.Fatal("expected key to be absent")
	}

	err := k.Update("a", func(v *int) error {
		*v++
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	_ = k.Update("a", func(v *int) error { return nil })

	var got int
	if !k.View("a", func(v int) { got = v }) {
		t.Fatal("expected key to exist")
	}
	if got != 6 {
		t.Fatalf("expected 6, got %d", got)
	}
	if calls != 1 {
		t.Fatalf("expected init to run once, got %d", calls)
	}
}

func TestKeyedUpdateReturnsError(t *testing.T) {
	k := NewKeyed(func() int { return 0 })
	wantErr := errors.New("boom")

	if err := k.Update("a", func(*int) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestKeyedSerializesSameKey(t *testing.T) {
	k := NewKeyed(func() int { return 0 })

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = k.Update("counter", func(v *int) error {
				cur := *v
				*v = cur + 1
				return nil
			})
		}()
	}
	wg.Wait()

	var got int
	k.View("counter", func(v int) { got = v })
	if got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
}

func TestKeyedDeleteIf(t *testing.T) {
	k := NewKeyed(func() int { return 0 })
	for _, key := range []string{"a", "b", "c"} {
		key := key
		_ = k.Update(key, func(v *int) error {
			*v = len(key) + int(key[0]-'a')
			return nil
		})
	}

	removed := k.DeleteIf(func(_ string, v int) bool { return v >= 2 })
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if !k.Exists("a") || k.Exists("b") || k.Exists("c") {
		t.Fatal("expected only a to remain")
	}

	_ = k.Update("b", func(v *int) error { return nil })
	var got int
	k.View("b", func(v int) { got = v })
	if got != 0 {
		t.Fatalf("expected recreated value 0, got %d", got)
	}
}

func TestKeyedDeleteIfSkipsBusyEntries(t *testing.T) {
	k := NewKeyed(func() int { return 0 })

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = k.Update("busy", func(v *int) error {
			close(entered)
			<-release
			*v = 42
			return nil
		})
	}()
	<-entered

	if removed := k.DeleteIf(func(string, int) bool { return true }); removed != 0 {
		t.Fatalf("expected busy entry to be skipped, removed %d", removed)
	}
	close(release)
	<-done

	var got int
	k.View("busy", func(v int) { got = v })
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}
