package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type refresherFunc func(ctx context.Context)

func (f refresherFunc) RefreshPopularTags(ctx context.Context) { f(ctx) }

func TestStartTagRefresh_RunsOnceInBackground(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	done := StartTagRefresh(context.Background(), refresherFunc(func(context.Context) {
		calls.Add(1)
		<-release
	}), time.Minute)

	select {
	case <-done:
		t.Fatal("StartTagRefresh should not block on the refresh")
	default:
	}

	close(release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh did not finish")
	}
	if calls.Load() != 1 {
		t.Fatalf("refresh calls = %d, want 1", calls.Load())
	}
}

func TestStartTagRefresh_TimesOut(t *testing.T) {
	var sawDeadline atomic.Bool
	done := StartTagRefresh(context.Background(), refresherFunc(func(ctx context.Context) {
		<-ctx.Done()
		sawDeadline.Store(ctx.Err() == context.DeadlineExceeded)
	}), 10*time.Millisecond)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh was not bounded by its timeout")
	}
	if !sawDeadline.Load() {
		t.Fatal("refresh context should end with DeadlineExceeded")
	}
}

func TestStartTagRefresh_StopsWithParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := StartTagRefresh(ctx, refresherFunc(func(ctx context.Context) { <-ctx.Done() }), time.Hour)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh ignored parent cancellation")
	}
}
