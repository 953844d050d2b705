// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tdmsync

import (
	"math/rand"
	"testing"

	"github.com/hooklift/assert"
)

// TestRollingChecksumIdentity verifies that sliding a window by one byte via
// rollingSlide produces the same checksum as computing the shifted window
// from scratch.
func TestRollingChecksumIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	data := make([]byte, 4096+64)
	rng.Read(data)

	windowLen := 64
	for start := 0; start+windowLen+1 <= len(data); start++ {
		w0 := data[start : start+windowLen]
		w1 := data[start+1 : start+1+windowLen]

		h0 := rollingChecksum(w0)
		h1 := rollingSlide(h0, data[start+windowLen], data[start], windowLen)

		assert.Equals(t, rollingChecksum(w1), h1)
	}
}

// TestRollingChecksumIdentitySmallWindow exercises the same invariant with
// a window length that is not a multiple of 32, since small block sizes
// (e.g. 4 bytes) are valid configurations too.
func TestRollingChecksumIdentitySmallWindow(t *testing.T) {
	data := []byte("ABCDEFGHabcdefgh01234567")
	windowLen := 4

	for start := 0; start+windowLen+1 <= len(data); start++ {
		h0 := rollingChecksum(data[start : start+windowLen])
		h1 := rollingSlide(h0, data[start+windowLen], data[start], windowLen)
		assert.Equals(t, rollingChecksum(data[start+1:start+1+windowLen]), h1)
	}
}

func TestRollingChecksumDeterministic(t *testing.T) {
	block := []byte("the quick brown fox jumped over")
	assert.Equals(t, rollingChecksum(block), rollingChecksum(append([]byte{}, block...)))
}

func TestRollingChecksumDiffersOnChange(t *testing.T) {
	a := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaab")
	assert.Cond(t, rollingChecksum(a) != rollingChecksum(b), "checksum should differ for different blocks")
}
