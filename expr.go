package predicate

import (
	"bytes"
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"
)

// Evaluable is anything which carries an expression.
type Evaluable interface {
	// Expression returns an expression as a raw string.
	Expression() string
}

// Predicate is a registered expression normalized into DNF.
type Predicate struct {
	ID uuid.UUID
	// Expression is the source expression.  It is empty for predicates restored
	// from a Store.
	Expression string
	// Root is the normalized tree.
	Root Node
}

// Terms returns the independently plannable terms of the predicate.
func (p Predicate) Terms() []Node {
	return Terms(p.Root)
}

// PredicateStore persists normalized predicates.  Store implements it.
type PredicateStore interface {
	Put(ctx context.Context, id uuid.UUID, n Node) error
	Delete(ctx context.Context, id uuid.UUID) error
	Scan(ctx context.Context, fn func(id uuid.UUID, n Node) bool) error
}

// RegistryOpts configures a Registry.
type RegistryOpts struct {
	// Concurrency bounds the goroutines used by Match.  Defaults to GOMAXPROCS.
	Concurrency int
	// Store optionally persists every added predicate.
	Store PredicateStore
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewRegistry returns a Registry which parses expressions with parser.
func NewRegistry(parser TreeParser, opts RegistryOpts) *Registry {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		parser:      parser,
		store:       opts.Store,
		log:         log,
		concurrency: opts.Concurrency,
		lock:        &sync.RWMutex{},
		predicates:  map[uuid.UUID]*Predicate{},
		terms:       newTermIndex(),
	}
}

// Registry holds a set of predicates in DNF, indexing each of their terms so
// that predicates sharing a conjunction can be planned together.
type Registry struct {
	parser      TreeParser
	store       PredicateStore
	log         *slog.Logger
	concurrency int

	lock       *sync.RWMutex
	predicates map[uuid.UUID]*Predicate
	terms      *termIndex
}

// Add parses, normalizes and registers the expression, returning its ID.
func (r *Registry) Add(ctx context.Context, eval Evaluable) (uuid.UUID, error) {
	root, err := r.parser.Parse(ctx, eval.Expression())
	if err != nil {
		return uuid.Nil, err
	}

	p := &Predicate{
		ID:         uuid.New(),
		Expression: eval.Expression(),
		Root:       Convert(root),
	}

	if r.store != nil {
		if err := r.store.Put(ctx, p.ID, p.Root); err != nil {
			return uuid.Nil, err
		}
	}

	r.insert(p)
	r.log.Debug("added predicate", "id", p.ID, "terms", len(p.Terms()))
	return p.ID, nil
}

func (r *Registry) insert(p *Predicate) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.predicates[p.ID] = p
	for _, t := range p.Terms() {
		r.terms.add(p.ID, t)
	}
}

// Remove unregisters the predicate with the given ID.  The predicate is deleted
// from the store first; if that fails it stays registered.
func (r *Registry) Remove(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.Get(id); !ok {
		return ErrPredicateNotFound
	}

	if r.store != nil {
		if err := r.store.Delete(ctx, id); err != nil {
			return err
		}
	}

	r.lock.Lock()
	p, ok := r.predicates[id]
	if !ok {
		r.lock.Unlock()
		return ErrPredicateNotFound
	}
	delete(r.predicates, id)
	for _, t := range p.Terms() {
		r.terms.remove(id, t)
	}
	r.lock.Unlock()

	r.log.Debug("removed predicate", "id", id)
	return nil
}

// Restore registers every predicate held in the registry's store.
func (r *Registry) Restore(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}

	n := 0
	err := r.store.Scan(ctx, func(id uuid.UUID, root Node) bool {
		r.insert(&Predicate{ID: id, Root: Convert(root)})
		n++
		return true
	})
	r.log.Info("restored predicates", "count", n)
	return n, err
}

func (r *Registry) Get(id uuid.UUID) (*Predicate, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	p, ok := r.predicates[id]
	return p, ok
}

func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.predicates)
}

// Sharing returns the IDs of predicates whose DNF contains a term structurally
// equal to the normalized term, in ascending ID order.
func (r *Registry) Sharing(term Node) []uuid.UUID {
	term = Convert(term)

	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.terms.sharing(term)
}

// Match returns the IDs of predicates which evaluate to true against l, in
// ascending ID order.
func (r *Registry) Match(ctx context.Context, l Lookup) ([]uuid.UUID, error) {
	r.lock.RLock()
	all := make([]*Predicate, 0, len(r.predicates))
	for _, p := range r.predicates {
		all = append(all, p)
	}
	r.lock.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := iter.Mapper[*Predicate, bool]{MaxGoroutines: r.concurrency}
	results := m.Map(all, func(p **Predicate) bool {
		if ctx.Err() != nil {
			return false
		}
		return (*p).Root.Evaluate(l)
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matched := []uuid.UUID{}
	for i, ok := range results {
		if ok {
			matched = append(matched, all[i].ID)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return bytes.Compare(matched[i][:], matched[j][:]) < 0
	})
	return matched, nil
}
