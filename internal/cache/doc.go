// Package cache provides the generational cache used for derived GPU objects.
//
// # Cache[K, V]
//
// Entries are stamped with the generation they were last used in. The owner
// calls Age once per unit of work (gpukit does it once per command
// submission). An entry that has not been touched for a full window of
// generations is evicted on the next Age.
//
//	c := cache.New[string, *Pipeline](cache.DefaultWindow, func(_ string, p *Pipeline) {
//	    p.Release()
//	})
//	p, err := c.GetOrInsert(key, buildPipeline)
//	...
//	c.Age()
//
// # Eviction
//
// Eviction is purely age based. There is no size limit. The eviction callback
// only drops the cache's own reference; values shared with other owners stay
// alive until those owners release them.
//
// # Thread Safety
//
// Cache is safe for concurrent use and must not be copied after creation
// (it contains a mutex).
package cache
