package numbering

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore allocates sequences from the document_sequences table. The
// upsert increments and returns in a single statement, so concurrent
// creations of the same kind serialize on the row without a separate
// read-max-then-increment step.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore builds a PGStore over the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Next implements Store.
func (s *PGStore) Next(ctx context.Context, kind Kind) (int64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_kind, seq)
		VALUES ($1, 1)
		ON CONFLICT (doc_kind)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, string(kind)).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// MemStore is a mutex-guarded in-process store used by tests and by
// callers without a database.
type MemStore struct {
	mu   sync.Mutex
	seqs map[Kind]int64
}

// NewMemStore builds an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{seqs: make(map[Kind]int64)}
}

// Next implements Store.
func (s *MemStore) Next(_ context.Context, kind Kind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[kind]++
	return s.seqs[kind], nil
}
