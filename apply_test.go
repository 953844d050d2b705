// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tdmsync

import (
	"math/rand"
	"testing"

	"github.com/hooklift/assert"
)

// extractRemoteBytes builds the extras stream a Downloader would have
// produced for plan's remote segments, by slicing them straight out of the
// known-good remote buffer (standing in for the network in these tests).
func extractRemoteBytes(remote []byte, plan UpdatePlan) []byte {
	var extras []byte
	for _, seg := range plan.Segments {
		if seg.Remote {
			extras = append(extras, remote[seg.SrcOffset:seg.SrcOffset+seg.Size]...)
		}
	}
	return extras
}

// TestApplyReconstructsRemote verifies that applying a plan built from local
// and a remote file's signature, fed the corresponding remote bytes as
// extras, exactly reconstructs the remote file, across a variety of
// local/remote pairs.
func TestApplyReconstructsRemote(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))
	remote := randomBytes(rng, 4096*6+123)

	cases := [][]byte{
		append([]byte{}, remote...),
		append(randomBytes(rng, 50), remote...),
		append(remote[1000:], remote[:1000]...),
		randomBytes(rng, 4096*2),
		nil,
	}

	sig := signOf(t, remote, 4096)
	for _, local := range cases {
		plan := planOf(t, local, sig)

		extras := NewMemStream(extractRemoteBytes(remote, plan))
		output := NewMemStream(make([]byte, 0, plan.FileSize))

		err := Apply(NewMemStream(local), extras, output, plan)
		assert.Ok(t, err)
		assert.Equals(t, string(remote), string(output.Bytes()))
	}
}

func TestApplyRejectsMismatchedExtrasSize(t *testing.T) {
	remote := []byte("ABCDZZZZ")
	sig := signOf(t, remote, 4)
	plan := planOf(t, []byte("ABCDQQQQ"), sig)

	extras := NewMemStream(make([]byte, plan.BytesRemote+1))
	output := NewMemStream(nil)

	err := Apply(NewMemStream([]byte("ABCDQQQQ")), extras, output, plan)
	assert.Cond(t, err != nil, "expected error for mismatched extras size")
	assert.Cond(t, IsKind(err, KindRangeMismatch), "expected KindRangeMismatch")
}
