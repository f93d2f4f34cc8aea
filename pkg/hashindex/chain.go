package hashindex

import (
	"fmt"

	"github.com/packdb/packdb/pkg/addr"
)

// Chain walks one bucket's links newest-first. Distinct keys share
// buckets, so the cursor yields candidate record Offsets; callers
// compare keys against the data log to pick theirs.
type Chain struct {
	ix    *Index
	next  addr.Offset
	steps uint64
	limit uint64
}

// Chain positions a cursor at the head link of key's bucket.
func (ix *Index) Chain(key []byte) (*Chain, error) {
	head, err := ix.readSlot(ix.Bucket(key))
	if err != nil {
		return nil, err
	}
	return &Chain{ix: ix, next: head, limit: ix.arenaLinks()}, nil
}

// Next returns the next candidate record Offset. A walk that takes
// more steps than the arena holds links can only be a cycle and fails
// with ErrCorrupt instead of looping.
func (c *Chain) Next() (addr.Offset, bool, error) {
	if c.next == 0 {
		return 0, false, nil
	}
	if c.steps >= c.limit {
		return 0, false, fmt.Errorf("chain exceeded %d arena links: %w", c.limit, ErrCorrupt)
	}
	c.steps++

	recordOff, next, err := c.ix.readLink(c.next)
	if err != nil {
		return 0, false, err
	}
	c.next = next
	return recordOff, true, nil
}

// Steps returns how many links the cursor has visited.
func (c *Chain) Steps() int {
	return int(c.steps)
}
