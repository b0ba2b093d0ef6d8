// Package cache provides a generic, size-bounded LRU cache.
//
// Besides plain Get/Put, PutIfAbsent lets the cache act as a bounded set of
// keys seen before (the broker uses it to warn once per missing channel),
// and Values walks entries from most to least recently used (the broker's
// archive of recently removed notifications).
package cache
