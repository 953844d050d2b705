// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tdmsync

import "github.com/rs/zerolog"

// Signer scans a file into a FileSignature. It holds no state across calls
// beyond its optional logger, so a single Signer value may be reused (but,
// per the core's synchronous design, not shared across goroutines
// concurrently).
type Signer struct {
	// Log receives diagnostic events at Debug/Trace level. The zero value
	// (zerolog.Logger{}) discards everything, so it's safe to leave unset.
	Log zerolog.Logger
}

// Sign reads src (of the given fileSize) in blockSize-sized windows and
// returns its FileSignature. If fileSize < blockSize the signature has no
// blocks. Otherwise every block is exactly blockSize bytes, anchored per
// blockOffset so the final block always covers the file's tail, and the
// resulting block list is sorted ascending by rolling checksum.
func (s Signer) Sign(src ByteStream, fileSize int64, blockSize int32) (FileSignature, error) {
	sig := FileSignature{FileSize: fileSize, BlockSize: blockSize}

	if blockSize <= 0 {
		return sig, newError(KindInvariantViolated, nil, "block size must be positive, got %d", blockSize)
	}

	n := blockCount(fileSize, blockSize)
	if n == 0 {
		s.Log.Debug().Int64("fileSize", fileSize).Int32("blockSize", blockSize).Msg("file smaller than one block, empty signature")
		return sig, nil
	}

	if err := src.Seek(0); err != nil {
		return sig, err
	}

	blocks := make([]BlockInfo, n)
	buf := make([]byte, blockSize)
	for i := 0; i < n; i++ {
		off := blockOffset(int64(i), fileSize, blockSize)
		if err := src.Seek(off); err != nil {
			return sig, err
		}
		if err := src.Read(buf); err != nil {
			return sig, err
		}

		blocks[i] = BlockInfo{
			Offset: off,
			Chksum: rollingChecksum(buf),
			Digest: StrongDigest(buf),
		}
	}

	pos, err := src.Tell()
	if err != nil {
		return sig, err
	}
	lastOff := blockOffset(int64(n-1), fileSize, blockSize)
	if pos != lastOff+int64(blockSize) {
		return sig, newError(KindInvariantViolated, nil,
			"scan did not end at file size: at %d, expected %d", pos, lastOff+int64(blockSize))
	}

	sortBlocksByChksum(blocks)
	sig.Blocks = blocks

	s.Log.Debug().Int("blocks", n).Msg("signature computed")
	return sig, nil
}
