// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tdmsync

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/dchest/siphash"
)

// maxPhfAttempts bounds how many times BuildPerfectHash resamples its two
// universal hash functions before giving up. Expected retries at load
// factor 1/3 is O(1); 100 is a generous multiple of that, treating
// persistent failure as a sign of a defective hash family or pathological
// key set rather than bad luck.
const maxPhfAttempts = 100

// universalHash is one of the two hash functions h0/h1 used by the
// CHM92-style perfect hash build. It's a siphash-2-4 instance keyed with a
// fresh random 128-bit key per build attempt, folded down to [0, 2^logSize)
// by masking the low bits of the 64-bit digest — siphash's output is
// uniform enough that taking any fixed-width slice of it behaves as a
// universal hash.
type universalHash struct {
	k0, k1 uint64
	mask   uint64
}

func newUniversalHash(logSize uint) (universalHash, error) {
	var seed [16]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return universalHash{}, newError(KindIO, err, "seeding perfect hash function")
	}
	return universalHash{
		k0:   binary.LittleEndian.Uint64(seed[0:8]),
		k1:   binary.LittleEndian.Uint64(seed[8:16]),
		mask: (uint64(1) << logSize) - 1,
	}, nil
}

func (h universalHash) evaluate(key uint32) uint32 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], key)
	return uint32(siphash.Hash(h.k0, h.k1, buf[:]) & h.mask)
}

// PerfectHash is a minimal-ish perfect hash function over a fixed set of
// uint32 keys, built by the random-bipartite-graph (CHM92) method: two
// universal hash functions map each key to a vertex in a graph with
// 2^logSize vertices, each distinct key becomes an edge, and if the
// resulting graph is a forest a valid vertex labeling exists by BFS.
//
// Evaluate is O(1) for any uint32 input. For keys that were in the training
// set it returns their sorted position; for any other key the result is
// unconstrained and callers MUST bounds-check it and re-compare against the
// original key before trusting it.
type PerfectHash struct {
	logSize uint
	h0, h1  universalHash
	g       []uint32
}

// BuildPerfectHash builds a PerfectHash over sortedKeys, which must already
// be sorted ascending (duplicates are tolerated; only each distinct key's
// first occurrence is guaranteed mapped to its position). Returns a
// KindPhfBuildExhausted error if no acyclic assignment is found within
// maxPhfAttempts resamples.
func BuildPerfectHash(sortedKeys []uint32) (*PerfectHash, error) {
	n := len(sortedKeys)

	logSize := uint(2)
	for (uint64(1) << logSize) < uint64(3*n) {
		logSize++
	}
	cells := int(uint64(1) << logSize)

	type edge struct {
		to    int
		value uint32
	}

	for attempt := 0; attempt < maxPhfAttempts; attempt++ {
		h0, err := newUniversalHash(logSize)
		if err != nil {
			return nil, err
		}
		h1, err := newUniversalHash(logSize)
		if err != nil {
			return nil, err
		}

		adj := make([][]edge, cells)
		for i, key := range sortedKeys {
			if i > 0 && key == sortedKeys[i-1] {
				continue
			}
			a := int(h0.evaluate(key))
			b := int(h1.evaluate(key))
			adj[a] = append(adj[a], edge{to: b, value: uint32(i)})
			adj[b] = append(adj[b], edge{to: a, value: uint32(i)})
		}

		g := make([]uint32, cells)
		visited := make([]bool, cells)
		ok := true

		for s := 0; ok && s < cells; s++ {
			if visited[s] {
				continue
			}
			visited[s] = true
			g[s] = 0
			queue := []int{s}
			for qi := 0; ok && qi < len(queue); qi++ {
				u := queue[qi]
				for _, e := range adj[u] {
					v := e.to
					if !visited[v] {
						g[v] = e.value ^ g[u]
						visited[v] = true
						queue = append(queue, v)
					}
					if (g[u] ^ g[v]) != e.value {
						ok = false
						break
					}
				}
			}
		}

		if !ok {
			continue
		}

		for i, key := range sortedKeys {
			if i > 0 && key == sortedKeys[i-1] {
				continue
			}
			a := int(h0.evaluate(key))
			b := int(h1.evaluate(key))
			if g[a]^g[b] != uint32(i) {
				return nil, newError(KindInvariantViolated, nil,
					"perfect hash verification failed for key %d at position %d", key, i)
			}
		}

		return &PerfectHash{logSize: logSize, h0: h0, h1: h1, g: g}, nil
	}

	return nil, newError(KindPhfBuildExhausted, nil,
		"perfect hash build exhausted %d attempts for %d keys", maxPhfAttempts, n)
}

// Evaluate returns g[h0(key)] XOR g[h1(key)]. For a key in the training set
// this is its sorted position; for any other key the result is
// unconstrained and may be >= the number of training keys.
func (p *PerfectHash) Evaluate(key uint32) uint32 {
	a := p.h0.evaluate(key)
	b := p.h1.evaluate(key)
	return p.g[a] ^ p.g[b]
}
