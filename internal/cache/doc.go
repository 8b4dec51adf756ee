// Package cache provides the bounded LRU used by the font and shaping caches.
//
//	c := cache.New[string, *Run](256)
//	c.Set("Hi", run)
//	run, ok := c.Get("Hi")
//
// A capacity of zero disables storage entirely: Set is a no-op and Get always
// misses. This keeps cached and uncached code paths identical so that callers
// can turn caching off without changing observable results.
//
// Cache is not safe for concurrent use. Font contexts and the shaping caches
// they own are confined to one paint worker.
package cache
