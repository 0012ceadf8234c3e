// Package chainstore declares the interface this engine requires from the
// external chain store. Every concrete method maps one-for-one onto
// the spec's contract; the engine only ever depends on this interface, not
// on a storage implementation.
package chainstore

import (
	"github.com/chainward/btcp2p/pkg/wire"
	"github.com/chainward/btcp2p/pkg/wire/payload"
)

// Status reports the outcome of submitting a header or block.
type Status int

// Submission outcomes.
const (
	StatusNew Status = iota
	StatusExisted
	StatusInvalid
	StatusOrphan
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusExisted:
		return "existed"
	case StatusInvalid:
		return "invalid"
	case StatusOrphan:
		return "orphan"
	default:
		return "unknown"
	}
}

// Store is the chain-store adapter contract. Implementations
// own block/header validation and persistence; this engine only consumes
// the interface.
type Store interface {
	// Tip returns the current best-known header hash and height.
	Tip() (wire.Uint256, uint32)

	// MaxFullBlockHeight is the highest height for which every block from
	// genesis is present.
	MaxFullBlockHeight() uint32

	// MissingBlocks returns up to limit block hashes this node wants,
	// prioritized by the store.
	MissingBlocks(limit int) []wire.Uint256

	// SubmitHeader offers a single header for validation/storage.
	SubmitHeader(h payload.BlockHeader) (Status, error)

	// SubmitBlock offers a full block for validation/storage.
	SubmitBlock(b payload.Block) (Status, error)

	// Save persists any buffered state.
	Save() error
}
