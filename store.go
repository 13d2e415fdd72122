package predicate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"
	"github.com/google/uuid"
)

var (
	ErrPredicateNotFound = fmt.Errorf("predicate not found")
)

var (
	storePrefix    = []byte("pred/")
	storePrefixEnd = []byte("pred0") // '0' follows '/'
)

// StoreOpts configures a Store.
type StoreOpts struct {
	// InMemory keeps all data in memory; the directory is only used as a name.
	InMemory bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Store persists normalized predicate trees by ID.
type Store struct {
	db  *pebble.DB
	log *slog.Logger
}

var _ PredicateStore = (*Store)(nil)

// OpenStore opens, or creates, a store in dir.
func OpenStore(dir string, opts StoreOpts) (*Store, error) {
	o := &pebble.Options{}
	if opts.InMemory {
		o.FS = vfs.NewMem()
	}
	db, err := pebble.Open(dir, o)
	if err != nil {
		return nil, fmt.Errorf("error opening predicate store: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, log: log}, nil
}

func storeKey(id uuid.UUID) []byte {
	key := make([]byte, 0, len(storePrefix)+len(id))
	key = append(key, storePrefix...)
	return append(key, id[:]...)
}

func (s *Store) Put(ctx context.Context, id uuid.UUID, n Node) error {
	byt, err := MarshalNode(n)
	if err != nil {
		return fmt.Errorf("error encoding predicate %s: %w", id, err)
	}
	if err := s.db.Set(storeKey(id), byt, pebble.Sync); err != nil {
		return fmt.Errorf("error storing predicate %s: %w", id, err)
	}
	s.log.Debug("stored predicate", "id", id, "bytes", len(byt))
	return nil
}

// Get returns the tree stored for id, or ErrPredicateNotFound.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Node, error) {
	byt, closer, err := s.db.Get(storeKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrPredicateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading predicate %s: %w", id, err)
	}
	defer closer.Close()

	// byt is only valid until closer is closed.
	return UnmarshalNode(byt)
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.db.Delete(storeKey(id), pebble.Sync); err != nil {
		return fmt.Errorf("error deleting predicate %s: %w", id, err)
	}
	s.log.Debug("deleted predicate", "id", id)
	return nil
}

// Scan calls fn for every stored predicate in ID order until fn returns false.
func (s *Store) Scan(ctx context.Context, fn func(id uuid.UUID, n Node) bool) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: storePrefix,
		UpperBound: storePrefixEnd,
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		id, err := uuid.FromBytes(iter.Key()[len(storePrefix):])
		if err != nil {
			return fmt.Errorf("%w: key %x", ErrInvalidEncoding, iter.Key())
		}
		n, err := UnmarshalNode(iter.Value())
		if err != nil {
			return fmt.Errorf("error decoding predicate %s: %w", id, err)
		}
		if !fn(id, n) {
			break
		}
	}
	return iter.Error()
}

func (s *Store) Close() error {
	return s.db.Close()
}
