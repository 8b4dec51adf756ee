// Package fontcache implements the font cache service: the process-wide
// coordinator that matches font descriptors against installed and bundled
// fonts, loads font files and hands out shared, reference-counted
// templates.
//
// The Service owns all of its state on one goroutine and is driven only by
// messages. Requests carry an id and a reply channel; a Client multiplexes
// many callers over one reply channel and routes responses by id, so the
// service can sit behind any transport, including a process boundary.
//
// Concurrent identical resolves join the lookup already in flight, so one
// enumeration serves them all. Successful resolutions are kept for the
// life of the service; failures are remembered for a configurable TTL.
//
//	svc := fontcache.New(fontcache.WithEnumerator(fontcache.Bundled()))
//	defer svc.Close()
//	client := svc.NewClient()
//	tmpl, err := client.Resolve(ctx, fonts.Descriptor{Family: "Go", Size: 16})
package fontcache
