package store

import (
	"bytes"
)

// History returns key's values newest-first: the chains are
// prepend-only, so every committed version of a key stays reachable
// behind the latest one. A limit of zero or less returns every
// version. A key that was never put yields an empty history.
func (s *Store) History(key []byte, limit int) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return nil, err
	}

	chain, err := s.index.Chain(key)
	if err != nil {
		return nil, s.opErr("history", 0, err)
	}

	var versions [][]byte
	for limit <= 0 || len(versions) < limit {
		off, ok, err := chain.Next()
		if err != nil {
			return nil, s.opErr("history", 0, err)
		}
		if !ok {
			break
		}
		candidate, err := s.data.ReadKey(off)
		if err != nil {
			return nil, s.opErr("history", off, err)
		}
		if !bytes.Equal(candidate, key) {
			continue
		}

		_, value, err := s.data.ReadRecord(off)
		if err != nil {
			return nil, s.opErr("history", off, err)
		}
		versions = append(versions, value)
	}

	s.met.RecordChainWalk(chain.Steps())
	return versions, nil
}
