package app

import (
	"context"
	"time"
)

// DefaultRefreshTimeout bounds the background popular tags refresh.
const DefaultRefreshTimeout = 15 * time.Second

// TagRefresher refreshes the recent tags cache. *shiori.Client implements it.
type TagRefresher interface {
	RefreshPopularTags(ctx context.Context)
}

// StartTagRefresh launches a background goroutine that refreshes popular
// tags once and returns immediately. The returned channel is closed when
// the refresh finishes or times out.
func StartTagRefresh(ctx context.Context, r TagRefresher, timeout time.Duration) <-chan struct{} {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		r.RefreshPopularTags(ctx)
	}()
	return done
}
