package fontcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/webpaint"
	"github.com/gogpu/webpaint/fonts"
)

// prefetchLimit bounds concurrent resolves issued by Prefetch.
const prefetchLimit = 8

// Client multiplexes callers over one reply channel and routes responses
// by request id. It implements fonts.Resolver and is safe for concurrent
// use.
type Client struct {
	svc     *Service
	replies chan Response
	nextID  atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan Response
	closed  bool
}

var _ fonts.Resolver = (*Client)(nil)

// NewClient returns a client of s. A client lives until s is closed.
func (s *Service) NewClient() *Client {
	c := &Client{
		svc:     s,
		replies: make(chan Response, 16),
		pending: make(map[uint64]chan Response),
	}
	go c.dispatch()
	return c
}

func (c *Client) dispatch() {
	for {
		select {
		case resp := <-c.replies:
			c.route(resp)
		case <-c.svc.Done():
			c.mu.Lock()
			c.closed = true
			for id, ch := range c.pending {
				ch <- Response{ID: id, Err: ErrClosed}
				delete(c.pending, id)
			}
			c.mu.Unlock()
			return
		}
	}
}

func (c *Client) route(resp Response) {
	c.mu.Lock()
	ch, ok := c.pending[resp.ID]
	delete(c.pending, resp.ID)
	c.mu.Unlock()
	if !ok {
		webpaint.Logger().Debug("fontcache: dropped late response", "id", resp.ID)
		resp.Release()
		return
	}
	ch <- resp
}

func (c *Client) call(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	req.ID = c.nextID.Add(1)
	req.Reply = c.replies
	req.Done = ctx.Done()

	ch := make(chan Response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Response{}, ErrClosed
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	if err := c.svc.Send(req); err != nil {
		c.forget(req.ID)
		return Response{}, err
	}

	select {
	case resp := <-ch:
		return resp, resp.Err
	case <-ctx.Done():
		if !c.forget(req.ID) {
			// The dispatcher already routed the response.
			(<-ch).Release()
		}
		return Response{}, ctx.Err()
	}
}

// forget removes id from the pending table. It reports whether id was
// still pending.
func (c *Client) forget(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[id]; !ok {
		return false
	}
	delete(c.pending, id)
	return true
}

// Resolve returns the template best matching d. The template carries one
// reference owned by the caller. ErrNotFound means no face matched.
func (c *Client) Resolve(ctx context.Context, d fonts.Descriptor) (*fonts.Template, error) {
	resp, err := c.call(ctx, Request{Op: OpResolve, Descriptor: d})
	if err != nil {
		return nil, err
	}
	return resp.Template, nil
}

// MatchFamily returns the faces of family best first, then the faces of
// generic's families, then the last-resort descriptor.
func (c *Client) MatchFamily(ctx context.Context, family string, generic fonts.Generic) ([]fonts.Descriptor, error) {
	resp, err := c.call(ctx, Request{Op: OpMatchFamily, Family: family, Generic: generic})
	if err != nil {
		return nil, err
	}
	return resp.Descriptors, nil
}

// Prefetch resolves descs in parallel so later lookups hit the cache.
// Descriptors that match nothing are skipped.
func (c *Client) Prefetch(ctx context.Context, descs ...fonts.Descriptor) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchLimit)
	for _, d := range descs {
		g.Go(func() error {
			t, err := c.Resolve(ctx, d)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			t.Release()
			return nil
		})
	}
	return g.Wait()
}
