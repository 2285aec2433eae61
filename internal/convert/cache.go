package convert

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/expr-lang/expr/vm"
)

// DefaultCacheSize is the default maximum number of compiled programs kept
// by the process-wide program cache.
const DefaultCacheSize = 1000

// programs is shared by every Converter. Trees may be driven from separate
// goroutines (one per ticker), so the cache is the one piece of this package
// that must be safe for concurrent use.
var programs = NewProgramCache(DefaultCacheSize)

// ProgramCache is a bounded LRU cache of compiled expr-lang programs, keyed
// by expression source.
type ProgramCache struct {
	mu        sync.Mutex
	items     map[string]*list.Element
	lru       *list.List
	maxSize   int
	hitCount  int64
	missCount int64
}

type cacheEntry struct {
	source  string
	program *vm.Program
}

// NewProgramCache creates a cache holding at most maxSize programs.
func NewProgramCache(maxSize int) *ProgramCache {
	if maxSize < 1 {
		maxSize = DefaultCacheSize
	}
	return &ProgramCache{
		items:   make(map[string]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Get returns the program compiled from source, if cached.
func (c *ProgramCache) Get(source string) (*vm.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[source]
	if !ok {
		c.missCount++
		return nil, false
	}
	c.hitCount++
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry).program, true
}

// Put stores a program, evicting the least recently used entry when full.
func (c *ProgramCache) Put(source string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[source]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).program = program
		return
	}
	c.items[source] = c.lru.PushFront(&cacheEntry{source: source, program: program})
	c.evict()
}

// Resize changes the capacity, evicting immediately if required.
func (c *ProgramCache) Resize(maxSize int) {
	if maxSize < 1 {
		maxSize = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = maxSize
	c.evict()
}

func (c *ProgramCache) evict() {
	for c.lru.Len() > c.maxSize {
		elem := c.lru.Back()
		delete(c.items, elem.Value.(*cacheEntry).source)
		c.lru.Remove(elem)
	}
}

// Len returns the number of cached programs.
func (c *ProgramCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns the cache size and hit/miss counters.
func (c *ProgramCache) Stats() (size int, hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len(), c.hitCount, c.missCount
}

func (c *ProgramCache) String() string {
	size, hits, misses := c.Stats()
	return fmt.Sprintf("ProgramCache{size=%d, hits=%d, misses=%d}", size, hits, misses)
}

// SetCacheSize resizes the process-wide program cache.
func SetCacheSize(size int) { programs.Resize(size) }
