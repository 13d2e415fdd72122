package predicate

import (
	"bytes"

	"github.com/google/uuid"
	"github.com/tidwall/btree"
)

// termEntry indexes one DNF term of a predicate.
type termEntry struct {
	fingerprint uint64
	id          uuid.UUID
	// key is the term's canonical text, distinguishing colliding fingerprints
	// within one predicate.
	key  string
	term Node
}

// termIndex orders terms by fingerprint, then predicate ID and key, so that every
// predicate sharing a term can be found with a single ascending scan.
type termIndex struct {
	tree *btree.BTreeG[termEntry]
}

func newTermIndex() *termIndex {
	return &termIndex{
		tree: btree.NewBTreeG(func(a, b termEntry) bool {
			if a.fingerprint != b.fingerprint {
				return a.fingerprint < b.fingerprint
			}
			if c := bytes.Compare(a.id[:], b.id[:]); c != 0 {
				return c < 0
			}
			return a.key < b.key
		}),
	}
}

func (t *termIndex) add(id uuid.UUID, term Node) {
	t.set(Fingerprint(term), id, term)
}

func (t *termIndex) set(fp uint64, id uuid.UUID, term Node) {
	t.tree.Set(termEntry{fingerprint: fp, id: id, key: term.String(), term: term})
}

func (t *termIndex) remove(id uuid.UUID, term Node) {
	t.tree.Delete(termEntry{fingerprint: Fingerprint(term), id: id, key: term.String()})
}

// sharing returns the IDs of predicates indexed with a term structurally equal
// to term, in ascending order.
func (t *termIndex) sharing(term Node) []uuid.UUID {
	fp := Fingerprint(term)
	ids := []uuid.UUID{}
	t.tree.Ascend(termEntry{fingerprint: fp}, func(e termEntry) bool {
		if e.fingerprint != fp {
			return false
		}
		if Equal(e.term, term) {
			ids = append(ids, e.id)
		}
		return true
	})
	return ids
}
