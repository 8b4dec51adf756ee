package fontcache

import "sync"

var (
	defaultMu     sync.Mutex
	defaultSvc    *Service
	defaultClient *Client
)

// Default returns the process-wide client. The service behind it is
// started on first use and enumerates system fonts before bundled ones.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultSvc = New(WithEnumerator(ChainEnumerator{&SystemEnumerator{}, Bundled()}))
		defaultClient = defaultSvc.NewClient()
	}
	return defaultClient
}

// Shutdown stops the process-wide service. A later Default starts a new one.
func Shutdown() {
	defaultMu.Lock()
	svc := defaultSvc
	defaultSvc, defaultClient = nil, nil
	defaultMu.Unlock()
	if svc != nil {
		svc.Close()
	}
}
