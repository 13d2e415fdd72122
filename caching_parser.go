package predicate

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/karlseguin/ccache/v2"
)

const (
	defaultCacheSize = 10_000
	defaultCacheTTL  = time.Hour
)

// CachingParserOpts configures a CachingParser.
type CachingParserOpts struct {
	// Size is the maximum number of cached expressions.  Defaults to 10,000.
	Size int64
	// TTL is how long a cached expression lives.  Defaults to one hour.
	TTL time.Duration
}

// NewCachingParser returns a parser which lifts quoted literals out of the
// expression as variables and caches the normalized tree of the lifted
// expression.  Expressions differing only in their string literals share a
// cache entry.
//
// Parse returns trees already in disjunctive normal form.
func NewCachingParser(env *cel.Env, opts CachingParserOpts) *CachingParser {
	if opts.Size <= 0 {
		opts.Size = defaultCacheSize
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultCacheTTL
	}
	return &CachingParser{
		parser: NewTreeParser(env),
		cache:  ccache.New(ccache.Configure().MaxSize(opts.Size)),
		ttl:    opts.TTL,
	}
}

type CachingParser struct {
	parser TreeParser
	cache  *ccache.Cache
	ttl    time.Duration

	hits   int64
	misses int64
}

func (c *CachingParser) Parse(ctx context.Context, expr string) (Node, error) {
	lifted, vars := liftLiterals(expr)

	if item := c.cache.Get(lifted); item != nil && !item.Expired() {
		atomic.AddInt64(&c.hits, 1)
		return bindLiterals(item.Value().(Node), vars)
	}

	atomic.AddInt64(&c.misses, 1)

	root, err := c.parser.Parse(ctx, lifted)
	if err != nil {
		return nil, err
	}
	converted := Convert(root)
	c.cache.Set(lifted, converted, c.ttl)

	return bindLiterals(converted, vars)
}

func (c *CachingParser) Hits() int64 {
	return atomic.LoadInt64(&c.hits)
}

func (c *CachingParser) Misses() int64 {
	return atomic.LoadInt64(&c.misses)
}

// Stop stops the cache's background worker.
func (c *CachingParser) Stop() {
	c.cache.Stop()
}
