// Package indel implements the insert/delete batching contract handed from
// a local mutator to a replicator: a buffered set of inserts and deletes,
// or a full replacement, applied atomically on the receiving side.
package indel

// Snapshot is the by-value, serializable form of a Builder's accumulated
// mutation. It is the wire shape exchanged with the replication layer.
type Snapshot[S comparable] struct {
	Inserts    []S  `json:"inserts"`
	Deletes    []S  `json:"deletes"`
	ReplaceAll bool `json:"replaceAll"`
}

// Apply computes S' = (if ReplaceAll then ∅ else S) ∪ Inserts \ Deletes.
func (s Snapshot[S]) Apply(base map[S]struct{}) map[S]struct{} {
	out := make(map[S]struct{})
	if !s.ReplaceAll {
		for v := range base {
			out[v] = struct{}{}
		}
	}
	for _, v := range s.Inserts {
		out[v] = struct{}{}
	}
	for _, v := range s.Deletes {
		delete(out, v)
	}
	return out
}

// Builder accumulates inserts and deletes for later export. It is not
// safe for concurrent use; callers confine mutation to a single goroutine.
type Builder[S comparable] struct {
	inserts    map[S]struct{}
	deletes    map[S]struct{}
	replaceAll bool
}

// NewBuilder returns an empty, non-replacing builder.
func NewBuilder[S comparable]() *Builder[S] {
	return &Builder[S]{
		inserts: make(map[S]struct{}),
		deletes: make(map[S]struct{}),
	}
}

// Insert records x as inserted, stripping it from the delete set.
func (b *Builder[S]) Insert(x S) {
	b.inserts[x] = struct{}{}
	delete(b.deletes, x)
}

// Delete records x as deleted, stripping it from the insert set.
func (b *Builder[S]) Delete(x S) {
	b.deletes[x] = struct{}{}
	delete(b.inserts, x)
}

// ReplaceAll discards any pending inserts/deletes and marks the builder as
// a full replacement with the given set as the new inserts.
func (b *Builder[S]) ReplaceAll(set map[S]struct{}) {
	b.inserts = make(map[S]struct{}, len(set))
	for v := range set {
		b.inserts[v] = struct{}{}
	}
	b.deletes = make(map[S]struct{})
	b.replaceAll = true
}

// ExportAndReset returns a by-value snapshot of the current contents and
// resets the builder to empty, non-replacing.
func (b *Builder[S]) ExportAndReset() Snapshot[S] {
	snap := Snapshot[S]{
		Inserts:    setToSlice(b.inserts),
		Deletes:    setToSlice(b.deletes),
		ReplaceAll: b.replaceAll,
	}
	b.inserts = make(map[S]struct{})
	b.deletes = make(map[S]struct{})
	b.replaceAll = false
	return snap
}

// Reset discards all pending mutation, yielding the empty, non-replacing
// state, without producing a snapshot.
func (b *Builder[S]) Reset() {
	b.inserts = make(map[S]struct{})
	b.deletes = make(map[S]struct{})
	b.replaceAll = false
}

func setToSlice[S comparable](set map[S]struct{}) []S {
	out := make([]S, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}
