// Package memchain is an in-memory reference implementation of
// chainstore.Store. It is not a consensus engine: it performs no
// transaction or proof-of-work validation. It exists
// so cmd/btcnode is a runnable, complete program and so pkg/node's tests
// have a real collaborator instead of a mock, the same role
// the teacher's internal/fakechain plays for nspcc-dev/neo-go's own tests.
package memchain

import (
	"sort"
	"sync"

	"github.com/chainward/btcp2p/pkg/chainstore"
	"github.com/chainward/btcp2p/pkg/wire"
	"github.com/chainward/btcp2p/pkg/wire/payload"
)

// Chain is a minimal hash-linked header/block store keyed by header hash.
// Safe for concurrent use, though the engine itself only ever calls it
// from its single event-loop goroutine; the mutex lets callers outside
// the loop (diagnostics, tests) read it concurrently.
type Chain struct {
	mu sync.Mutex

	genesis  wire.Uint256
	headers  map[wire.Uint256]payload.BlockHeader
	heights  map[wire.Uint256]uint32
	byHeight map[uint32]wire.Uint256
	blocks   map[wire.Uint256]payload.Block // full blocks only

	tipHash   wire.Uint256
	tipHeight uint32

	saveCount int
}

// New builds a chain store seeded with a single genesis header at height
// zero.
func New(genesis payload.BlockHeader) *Chain {
	h := genesis.Hash()
	c := &Chain{
		genesis:  h,
		headers:  map[wire.Uint256]payload.BlockHeader{h: genesis},
		heights:  map[wire.Uint256]uint32{h: 0},
		byHeight: map[uint32]wire.Uint256{0: h},
		blocks:   map[wire.Uint256]payload.Block{},
		tipHash:  h,
	}
	return c
}

// Tip implements chainstore.Store.
func (c *Chain) Tip() (wire.Uint256, uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tipHash, c.tipHeight
}

// MaxFullBlockHeight implements chainstore.Store: the highest height for
// which every block from genesis has been submitted in full.
func (c *Chain) MaxFullBlockHeight() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	height := uint32(0)
	for {
		next := height + 1
		hash, ok := c.byHeight[next]
		if !ok {
			break
		}
		if _, ok := c.blocks[hash]; !ok {
			break
		}
		height = next
	}
	return height
}

// MissingBlocks implements chainstore.Store: headers known but with no
// full block yet, lowest height first.
func (c *Chain) MissingBlocks(limit int) []wire.Uint256 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var heights []uint32
	for h := range c.byHeight {
		if h == 0 {
			continue // genesis counts as present, as in MaxFullBlockHeight
		}
		hash := c.byHeight[h]
		if _, ok := c.blocks[hash]; !ok {
			heights = append(heights, h)
		}
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })

	if limit > 0 && len(heights) > limit {
		heights = heights[:limit]
	}
	out := make([]wire.Uint256, 0, len(heights))
	for _, h := range heights {
		out = append(out, c.byHeight[h])
	}
	return out
}

// SubmitHeader implements chainstore.Store.
func (c *Chain) SubmitHeader(h payload.BlockHeader) (chainstore.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := h.Hash()
	if _, ok := c.headers[hash]; ok {
		return chainstore.StatusExisted, nil
	}
	prevHeight, ok := c.heights[h.PrevBlock]
	if !ok {
		return chainstore.StatusOrphan, nil
	}

	height := prevHeight + 1
	c.headers[hash] = h
	c.heights[hash] = height
	c.byHeight[height] = hash
	if height > c.tipHeight {
		c.tipHeight = height
		c.tipHash = hash
	}
	return chainstore.StatusNew, nil
}

// SubmitBlock implements chainstore.Store. The header must already be
// known (submitted via headers or discoverable from the block itself).
func (c *Chain) SubmitBlock(b payload.Block) (chainstore.Status, error) {
	if st, err := c.SubmitHeader(b.Header); err != nil {
		return st, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	hash := b.Hash()
	if _, ok := c.blocks[hash]; ok {
		return chainstore.StatusExisted, nil
	}
	c.blocks[hash] = b
	return chainstore.StatusNew, nil
}

// Save implements chainstore.Store. The in-memory store has nothing to
// flush; it counts calls so tests can assert the scheduler drives it.
func (c *Chain) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saveCount++
	return nil
}

// SaveCount reports how many times Save has been called, for tests.
func (c *Chain) SaveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveCount
}
