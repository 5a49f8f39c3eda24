// Package numbering issues unique, ordered document numbers such as
// QT-00001, INV-00001 and REC-00001. Allocation must be atomic per
// document kind: two concurrent callers never receive the same number.
package numbering

import (
	"context"
	"fmt"
)

// Kind identifies the document series a number belongs to.
type Kind string

const (
	KindQuotation Kind = "quotation"
	KindInvoice   Kind = "invoice"
	KindReceipt   Kind = "receipt"
)

var prefixes = map[Kind]string{
	KindQuotation: "QT",
	KindInvoice:   "INV",
	KindReceipt:   "REC",
}

// ErrUnknownKind reports a document kind without a configured series.
var ErrUnknownKind = fmt.Errorf("numbering: unknown document kind")

// Store allocates the next sequence value for a document kind. The
// increment must be atomic with respect to concurrent callers.
type Store interface {
	Next(ctx context.Context, kind Kind) (int64, error)
}

// Sequencer formats store-allocated sequences into document numbers.
type Sequencer struct {
	store Store
}

// NewSequencer builds a Sequencer over the given store.
func NewSequencer(store Store) *Sequencer {
	return &Sequencer{store: store}
}

// Next returns the next number in the series for kind, e.g. "INV-00042".
func (s *Sequencer) Next(ctx context.Context, kind Kind) (string, error) {
	prefix, ok := prefixes[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	seq, err := s.store.Next(ctx, kind)
	if err != nil {
		return "", fmt.Errorf("numbering: next %s: %w", kind, err)
	}
	return fmt.Sprintf("%s-%05d", prefix, seq), nil
}
