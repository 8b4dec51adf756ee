package fontcache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gogpu/webpaint"
	"github.com/gogpu/webpaint/fonts"
)

// DefaultFailureTTL is how long a failed resolution is remembered.
const DefaultFailureTTL = 5 * time.Second

// Op selects the operation of a Request.
type Op uint8

const (
	// OpResolve resolves Request.Descriptor to a template.
	OpResolve Op = iota
	// OpMatchFamily lists the faces of Request.Family and Request.Generic.
	OpMatchFamily
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpResolve:
		return "resolve"
	case OpMatchFamily:
		return "match-family"
	default:
		return fmt.Sprintf("Op(%d)", o)
	}
}

// Request is one message to the service. Exactly one Response with the
// same ID is sent on Reply unless Done is closed first.
type Request struct {
	ID uint64
	Op Op

	Descriptor fonts.Descriptor
	Family     string
	Generic    fonts.Generic

	// Reply receives the response. It must be drained or Done closed.
	Reply chan<- Response

	// Done abandons the request when closed. A template that could not be
	// delivered is released by the service.
	Done <-chan struct{}
}

// Response answers the Request with the same ID.
type Response struct {
	ID uint64

	// Template is set for a successful OpResolve. It carries one
	// reference owned by the receiver.
	Template *fonts.Template

	// Descriptors is set for OpMatchFamily.
	Descriptors []fonts.Descriptor

	Err error
}

// Release drops the template reference carried by r, if any.
func (r Response) Release() {
	if r.Template != nil {
		r.Template.Release()
	}
}

// Stats counts service activity.
type Stats struct {
	Requests uint64
	Lookups  uint64
	Hits     uint64
	Joined   uint64
	Failures uint64
}

// Option configures a Service.
type Option func(*options)

type options struct {
	enum     Enumerator
	loader   Loader
	ttl      time.Duration
	now      func() time.Time
	generics map[fonts.Generic][]string
}

// WithEnumerator sets the font enumeration capability. The default serves
// only the bundled fonts.
func WithEnumerator(e Enumerator) Option {
	return func(o *options) { o.enum = e }
}

// WithLoader sets how font bytes are read.
func WithLoader(l Loader) Option {
	return func(o *options) { o.loader = l }
}

// WithFailureTTL sets how long failures are cached. Zero disables
// failure caching.
func WithFailureTTL(d time.Duration) Option {
	return func(o *options) { o.ttl = d }
}

// WithClock replaces time.Now for failure expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithGeneric maps a generic family to an ordered family list.
func WithGeneric(g fonts.Generic, families ...string) Option {
	return func(o *options) { o.generics[g] = families }
}

// OptionsFromConfig translates the font section of a configuration. The
// failure TTL is always applied, so failure_ttl = "0s" disables failure
// caching; start from webpaint.DefaultConfig to keep the default.
func OptionsFromConfig(cfg webpaint.FontConfig) []Option {
	opts := []Option{WithFailureTTL(cfg.FailureTTL.Std())}
	for name, families := range cfg.Generic {
		g, ok := fonts.ParseGeneric(name)
		if !ok {
			webpaint.Logger().Warn("fontcache: unknown generic family in config", "name", name)
			continue
		}
		opts = append(opts, WithGeneric(g, families...))
	}
	if cfg.SystemFonts {
		opts = append(opts, WithEnumerator(ChainEnumerator{&SystemEnumerator{}, Bundled()}))
	}
	return opts
}

type result struct {
	key  fonts.Descriptor
	tmpl *fonts.Template
	err  error
}

// Service is the font cache service. One goroutine owns all caches;
// callers talk to it through Requests, usually via a Client.
type Service struct {
	opts options

	requests chan Request
	results  chan result
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	loads singleflight.Group

	requestsN atomic.Uint64
	lookupsN  atomic.Uint64
	hitsN     atomic.Uint64
	joinedN   atomic.Uint64
	failuresN atomic.Uint64

	// Owned by the loop goroutine.
	resolved map[fonts.Descriptor]*fonts.Template
	failed   map[fonts.Descriptor]time.Time
	inflight map[fonts.Descriptor][]Request
	sources  map[fonts.Source]*fonts.Template
}

// New starts a service.
func New(opts ...Option) *Service {
	o := options{
		loader:   FileLoader,
		ttl:      DefaultFailureTTL,
		now:      time.Now,
		generics: DefaultGenerics(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.enum == nil {
		o.enum = Bundled()
	}
	s := &Service{
		opts:     o,
		requests: make(chan Request),
		results:  make(chan result),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
		resolved: make(map[fonts.Descriptor]*fonts.Template),
		failed:   make(map[fonts.Descriptor]time.Time),
		inflight: make(map[fonts.Descriptor][]Request),
		sources:  make(map[fonts.Source]*fonts.Template),
	}
	go s.loop()
	webpaint.Logger().Info("fontcache: service started")
	return s
}

// Send queues a request. It fails with ErrClosed once the service stops.
func (s *Service) Send(req Request) error {
	select {
	case s.requests <- req:
		return nil
	case <-s.stopped:
		return ErrClosed
	}
}

// Close stops the service, fails pending requests with ErrClosed and
// drops the service's template references. It is safe to call twice.
func (s *Service) Close() {
	s.stopOnce.Do(func() { close(s.quit) })
	<-s.stopped
}

// Done is closed when the service has stopped.
func (s *Service) Done() <-chan struct{} { return s.stopped }

// Stats returns a snapshot of the counters.
func (s *Service) Stats() Stats {
	return Stats{
		Requests: s.requestsN.Load(),
		Lookups:  s.lookupsN.Load(),
		Hits:     s.hitsN.Load(),
		Joined:   s.joinedN.Load(),
		Failures: s.failuresN.Load(),
	}
}

func (s *Service) loop() {
	defer close(s.stopped)
	for {
		select {
		case req := <-s.requests:
			s.requestsN.Add(1)
			s.handle(req)
		case res := <-s.results:
			s.complete(res)
		case <-s.quit:
			s.shutdown()
			return
		}
	}
}

func (s *Service) handle(req Request) {
	switch req.Op {
	case OpResolve:
		s.resolve(req)
	case OpMatchFamily:
		go func() {
			descs, err := s.matchFamily(req.Family, req.Generic)
			s.deliver(req, Response{ID: req.ID, Descriptors: descs, Err: err})
		}()
	default:
		s.deliver(req, Response{ID: req.ID, Err: fmt.Errorf("%w: %s", ErrUnknownOp, req.Op)})
	}
}

func (s *Service) resolve(req Request) {
	key := req.Descriptor.MatchKey()
	if t, ok := s.resolved[key]; ok {
		s.hitsN.Add(1)
		s.deliver(req, Response{ID: req.ID, Template: t.Acquire()})
		return
	}
	if exp, ok := s.failed[key]; ok {
		if s.opts.now().Before(exp) {
			s.hitsN.Add(1)
			s.deliver(req, Response{ID: req.ID, Err: fmt.Errorf("%w: %s", ErrNotFound, key)})
			return
		}
		delete(s.failed, key)
	}
	if waiters, ok := s.inflight[key]; ok {
		s.joinedN.Add(1)
		s.inflight[key] = append(waiters, req)
		webpaint.Logger().Debug("fontcache: joined in-flight lookup", "font", key.String())
		return
	}
	s.inflight[key] = []Request{req}
	s.lookupsN.Add(1)
	go func() {
		t, err := s.lookup(key)
		select {
		case s.results <- result{key: key, tmpl: t, err: err}:
		case <-s.quit:
			if t != nil {
				t.Release()
			}
		}
	}()
}

// lookup enumerates the family of key, picks the best face and parses it.
// It runs outside the loop.
func (s *Service) lookup(key fonts.Descriptor) (*fonts.Template, error) {
	files, err := s.opts.enum.Enumerate(key.Family)
	if err != nil {
		return nil, fmt.Errorf("fontcache: enumerate %q: %w", key.Family, err)
	}
	f, ok := bestFace(files, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	v, err, shared := s.loads.Do(f.Path, func() (any, error) {
		return s.opts.loader.Load(f)
	})
	if err != nil {
		return nil, fmt.Errorf("fontcache: load %s: %w", f.Path, err)
	}
	if shared {
		webpaint.Logger().Debug("fontcache: shared file load", "path", f.Path)
	}
	t, err := fonts.ParseTemplateAs(v.([]byte), f.source(), f.declared())
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) complete(res result) {
	waiters := s.inflight[res.key]
	delete(s.inflight, res.key)

	if res.err != nil {
		s.failuresN.Add(1)
		if s.opts.ttl > 0 {
			s.failed[res.key] = s.opts.now().Add(s.opts.ttl)
		}
		if !errors.Is(res.err, ErrNotFound) {
			webpaint.Logger().Warn("fontcache: resolve failed", "font", res.key.String(), "err", res.err)
		}
		for _, w := range waiters {
			s.deliver(w, Response{ID: w.ID, Err: res.err})
		}
		return
	}

	t := res.tmpl
	if shared, ok := s.sources[t.Source()]; ok {
		t.Release()
		t = shared
	} else {
		s.sources[t.Source()] = t
	}
	s.resolved[res.key] = t
	for _, w := range waiters {
		s.deliver(w, Response{ID: w.ID, Template: t.Acquire()})
	}
}

func (s *Service) matchFamily(family string, generic fonts.Generic) ([]fonts.Descriptor, error) {
	var out []fonts.Descriptor
	seen := make(map[fonts.Descriptor]bool)
	add := func(name string) error {
		files, err := s.opts.enum.Enumerate(name)
		if err != nil {
			return err
		}
		for _, f := range rankFaces(files, fonts.Descriptor{}) {
			d := f.Descriptor()
			if k := d.MatchKey(); !seen[k] {
				seen[k] = true
				out = append(out, d)
			}
		}
		return nil
	}
	if family != "" {
		if err := add(family); err != nil {
			return nil, fmt.Errorf("fontcache: enumerate %q: %w", family, err)
		}
	}
	if generic != fonts.GenericNone {
		for _, name := range s.opts.generics[generic] {
			if err := add(name); err != nil {
				webpaint.Logger().Debug("fontcache: generic family unavailable", "generic", generic.String(), "family", name, "err", err)
			}
		}
	}
	return append(out, fonts.LastResortDescriptor(0)), nil
}

func (s *Service) shutdown() {
	for key, waiters := range s.inflight {
		for _, w := range waiters {
			s.deliver(w, Response{ID: w.ID, Err: ErrClosed})
		}
		delete(s.inflight, key)
	}
	for src, t := range s.sources {
		t.Release()
		delete(s.sources, src)
	}
	clear(s.resolved)
	clear(s.failed)
	webpaint.Logger().Info("fontcache: service stopped", "requests", s.requestsN.Load(), "lookups", s.lookupsN.Load())
}

// deliver sends resp unless the requester or the service has gone away,
// in which case a carried template is released.
func (s *Service) deliver(req Request, resp Response) {
	if req.Reply == nil {
		resp.Release()
		return
	}
	select {
	case req.Reply <- resp:
	case <-req.Done:
		resp.Release()
	case <-s.stopped:
		resp.Release()
	}
}
