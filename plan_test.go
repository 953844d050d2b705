// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tdmsync

import (
	"math/rand"
	"testing"

	"github.com/hooklift/assert"
)

func signOf(t *testing.T, data []byte, blockSize int32) FileSignature {
	t.Helper()
	sig, err := Signer{}.Sign(NewMemStream(data), int64(len(data)), blockSize)
	assert.Ok(t, err)
	return sig
}

func planOf(t *testing.T, local []byte, sig FileSignature) UpdatePlan {
	t.Helper()
	plan, err := Planner{}.CreatePlan(NewMemStream(local), int64(len(local)), sig)
	assert.Ok(t, err)
	return plan
}

// TestScenarioS1 verifies that identical files produce a single local
// segment.
func TestScenarioS1(t *testing.T) {
	remote := []byte("ABCDEFGH")
	sig := signOf(t, remote, 4)
	plan := planOf(t, []byte("ABCDEFGH"), sig)

	assert.Equals(t, 1, len(plan.Segments))
	assert.Equals(t, SegmentUse{SrcOffset: 0, DstOffset: 0, Size: 8, Remote: false}, plan.Segments[0])
	assert.Equals(t, int64(8), plan.BytesLocal)
	assert.Equals(t, int64(0), plan.BytesRemote)
}

// TestScenarioS2 covers S2: a two-byte prefix insertion still coalesces to
// one local segment.
func TestScenarioS2(t *testing.T) {
	remote := []byte("ABCDEFGH")
	sig := signOf(t, remote, 4)
	plan := planOf(t, []byte("XYABCDEFGH"), sig)

	assert.Equals(t, 1, len(plan.Segments))
	assert.Equals(t, SegmentUse{SrcOffset: 2, DstOffset: 0, Size: 8, Remote: false}, plan.Segments[0])
	assert.Equals(t, int64(0), plan.BytesRemote)
}

// TestScenarioS3 covers S3: a block-swapped local file produces two
// non-coalesced local segments.
func TestScenarioS3(t *testing.T) {
	remote := []byte("ABCDEFGH")
	sig := signOf(t, remote, 4)
	plan := planOf(t, []byte("EFGHABCD"), sig)

	assert.Equals(t, 2, len(plan.Segments))
	assert.Equals(t, SegmentUse{SrcOffset: 4, DstOffset: 0, Size: 4, Remote: false}, plan.Segments[0])
	assert.Equals(t, SegmentUse{SrcOffset: 0, DstOffset: 4, Size: 4, Remote: false}, plan.Segments[1])
	assert.Equals(t, int64(0), plan.BytesRemote)
}

// TestScenarioS4 covers S4: the second block is unrecognizable and must be
// downloaded from remote.
func TestScenarioS4(t *testing.T) {
	remote := []byte("ABCDEFGH")
	sig := signOf(t, remote, 4)
	plan := planOf(t, []byte("ABCDZZZZ"), sig)

	assert.Equals(t, 2, len(plan.Segments))
	assert.Equals(t, SegmentUse{SrcOffset: 0, DstOffset: 0, Size: 4, Remote: false}, plan.Segments[0])
	assert.Equals(t, SegmentUse{SrcOffset: 4, DstOffset: 4, Size: 4, Remote: true}, plan.Segments[1])
	assert.Equals(t, int64(4), plan.BytesLocal)
	assert.Equals(t, int64(4), plan.BytesRemote)
}

// TestScenarioS5 covers S5: a wholly unrelated local file downloads
// everything as one remote segment.
func TestScenarioS5(t *testing.T) {
	remote := []byte("ABCDEFGH")
	sig := signOf(t, remote, 4)
	plan := planOf(t, []byte("QQQQQQQQ"), sig)

	assert.Equals(t, 1, len(plan.Segments))
	assert.Equals(t, SegmentUse{SrcOffset: 0, DstOffset: 0, Size: 8, Remote: true}, plan.Segments[0])
	assert.Equals(t, int64(0), plan.BytesLocal)
	assert.Equals(t, int64(8), plan.BytesRemote)
}

// TestScenarioS6 covers S6: a remote file shorter than an integer number of
// blocks still round-trips through its own signature.
func TestScenarioS6(t *testing.T) {
	remote := []byte("ABCDEFG")
	sig := signOf(t, remote, 4)
	plan := planOf(t, []byte("ABCDEFG"), sig)

	assert.Equals(t, int64(0), plan.BytesRemote)
	assert.Equals(t, int64(7), plan.BytesLocal)
}

// TestIdentityPlan verifies that a local file identical to remote produces
// a single local segment and no remote bytes.
func TestIdentityPlan(t *testing.T) {
	data := make([]byte, 4096*5+37)
	rand.New(rand.NewSource(99)).Read(data)

	sig := signOf(t, data, 4096)
	plan := planOf(t, data, sig)

	assert.Equals(t, 1, len(plan.Segments))
	assert.Cond(t, !plan.Segments[0].Remote, "identity plan must be a local segment")
	assert.Equals(t, int64(len(data)), plan.Segments[0].Size)
	assert.Equals(t, int64(0), plan.BytesRemote)
}

// TestDisjointExactCover verifies that a plan's segments always form a
// disjoint exact cover of [0, FileSize), across several local/remote pairs.
func TestDisjointExactCover(t *testing.T) {
	rng := rand.New(rand.NewSource(123))
	remote := make([]byte, 4096*10)
	rng.Read(remote)

	cases := [][]byte{
		remote,
		append(append([]byte{}, remote[:100]...), append([]byte("INSERTED"), remote[100:]...)...),
		append(remote[2048:], remote[:2048]...),
		randomBytes(rng, 4096*3),
	}

	sig := signOf(t, remote, 4096)
	for _, local := range cases {
		plan := planOf(t, local, sig)
		checkDisjointExactCover(t, plan)
	}
}

func checkDisjointExactCover(t *testing.T, plan UpdatePlan) {
	t.Helper()
	if plan.FileSize == 0 {
		assert.Equals(t, 0, len(plan.Segments))
		return
	}
	assert.Cond(t, len(plan.Segments) > 0, "non-empty file must have a non-empty plan")
	var pos int64
	for _, seg := range plan.Segments {
		assert.Equals(t, pos, seg.DstOffset)
		assert.Cond(t, seg.Size > 0, "segment must have positive size")
		pos += seg.Size
	}
	assert.Equals(t, plan.FileSize, pos)
}

// TestBlockAlignedReuse verifies that inserting K bytes at the start of an
// otherwise-identical file costs at most K + 2*blockSize remote bytes.
func TestBlockAlignedReuse(t *testing.T) {
	rng := rand.New(rand.NewSource(55))
	remote := make([]byte, 4096*8)
	rng.Read(remote)
	sig := signOf(t, remote, 4096)

	for _, k := range []int{0, 1, 17, 4096, 5000} {
		inserted := randomBytes(rng, k)
		local := append(append([]byte{}, inserted...), remote...)

		plan := planOf(t, local, sig)
		assert.Cond(t, plan.BytesRemote <= int64(k)+2*4096,
			"bytesRemote should be at most K + 2*blockSize")
	}
}

func randomBytes(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	rng.Read(b)
	return b
}
