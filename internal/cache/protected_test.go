package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/p-iacone88/booksearch/internal/domain/user"
)

type flakyProfiles struct {
	err   error
	calls int
	block bool
}

func (f *flakyProfiles) Get(ctx context.Context, id string) (user.User, bool, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return user.User{}, false, ctx.Err()
	}
	return user.User{}, false, f.err
}

func (f *flakyProfiles) Set(ctx context.Context, u user.User) error {
	f.calls++
	return f.err
}

func (f *flakyProfiles) Delete(ctx context.Context, id string) error {
	f.calls++
	return f.err
}

func TestProtectedProfiles_OpensAndRecovers(t *testing.T) {
	inner := &flakyProfiles{err: errors.New("redis down")}

	p := NewProtectedProfiles(inner, ProtectedConfig{FailureThreshold: 2, Cooldown: time.Minute})

	now := time.Now()
	p.now = func() time.Time { return now }

	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := p.Delete(ctx, "x"); !errors.Is(err, inner.err) {
			t.Fatalf("call %d: got %v", i, err)
		}
	}

	// open: inner is not called
	if _, _, err := p.Get(ctx, "x"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}
	if inner.calls != 2 {
		t.Fatalf("inner called %d times, want 2", inner.calls)
	}

	// half-open trial fails and reopens
	now = now.Add(time.Minute)

	if err := p.Set(ctx, user.User{}); !errors.Is(err, inner.err) {
		t.Fatalf("trial: got %v", err)
	}
	if err := p.Set(ctx, user.User{}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("after failed trial: got %v", err)
	}

	// half-open trial succeeds and closes
	now = now.Add(time.Minute)
	inner.err = nil

	if err := p.Set(ctx, user.User{}); err != nil {
		t.Fatalf("trial: got %v", err)
	}
	if _, hit, err := p.Get(ctx, "x"); err != nil || hit {
		t.Fatalf("closed: got hit=%v err=%v", hit, err)
	}
}

func TestProtectedProfiles_Timeout(t *testing.T) {
	inner := &flakyProfiles{block: true}

	p := NewProtectedProfiles(inner, ProtectedConfig{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, _, err := p.Get(context.Background(), "x")

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not enforced")
	}
}
