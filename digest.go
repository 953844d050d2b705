// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tdmsync

import sha256 "github.com/minio/sha256-simd"

// DigestSize is the fixed length, in bytes, of a StrongDigest. It is baked
// into the signature wire layout (see codec.go) so readers can compute
// block stride without a length prefix per block.
const DigestSize = 20

// StrongDigest returns the 160-bit collision-resistant digest of block,
// used to confirm a rolling-checksum match before trusting it. It is the
// leading 20 bytes of a SIMD-accelerated SHA-256 rather than SHA-1: for this
// purpose any collision-resistant digest works, and truncating SHA-256 keeps
// the wire format's 20-byte field exactly as specified.
func StrongDigest(block []byte) [DigestSize]byte {
	full := sha256.Sum256(block)
	var d [DigestSize]byte
	copy(d[:], full[:DigestSize])
	return d
}
