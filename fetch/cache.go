package fetch

import (
	"context"
	"net/url"
	"time"

	"github.com/advdv/bsplice"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// SharedFetchTimeout bounds a fetch that is shared by all concurrent requests for the same locator. The shared fetch
// is detached from the cancellation of the request that started it.
const SharedFetchTimeout = 10 * time.Second

type cached struct {
	src    bsplice.Source
	items  *cache.Cache
	flight singleflight.Group
}

// Cached keeps successfully fetched fragments of src for ttl, keyed by the full locator. Concurrent fetches of the
// same locator share one call to src. A ttl <= 0 returns src as is.
func Cached(src bsplice.Source, ttl time.Duration) bsplice.Source {
	if ttl <= 0 {
		return src
	}

	return &cached{src: src, items: cache.New(ttl, 2*ttl)}
}

func (c *cached) Fetch(ctx context.Context, loc *url.URL) (*bsplice.Fragment, error) {
	key := loc.String()
	if v, ok := c.items.Get(key); ok {
		return v.(*bsplice.Fragment), nil
	}

	ch := c.flight.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SharedFetchTimeout)
		defer cancel()

		frag, err := c.src.Fetch(fctx, loc)
		if err != nil {
			return nil, err
		}

		c.items.SetDefault(key, frag)

		return frag, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		return res.Val.(*bsplice.Fragment), nil
	}
}
