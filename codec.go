// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tdmsync

import (
	"encoding/binary"
	"math"
)

// magic frames both ends of the serialized FileSignature, matching the
// wire layout's conventional ".tdmsync" sidecar suffix.
const magic = "tdmsync."

const magicSize = 8

// EncodedSize returns the exact byte length SignatureCodec.Encode will
// produce for a signature with n blocks: two 8-byte magics, the fileSize,
// blockSize and blocksCount header fields, and 32 bytes per block.
func EncodedSize(n int) int64 {
	return int64(magicSize) + 8 + 4 + 8 + int64(n)*int64(8+4+DigestSize) + int64(magicSize)
}

// Encode writes sig to dst in the little-endian, tightly packed layout:
//
//	magic       8 bytes  "tdmsync."
//	fileSize    int64
//	blockSize   int32
//	blocksCount uint64
//	blocks      blocksCount * { offset int64, chksum uint32, digest [20]byte }
//	magic       8 bytes  "tdmsync."  (footer)
func Encode(sig FileSignature, dst ByteStream) error {
	n := len(sig.Blocks)
	buf := make([]byte, EncodedSize(n))
	w := buf

	copy(w, magic)
	w = w[magicSize:]

	binary.LittleEndian.PutUint64(w, uint64(sig.FileSize))
	w = w[8:]

	binary.LittleEndian.PutUint32(w, uint32(sig.BlockSize))
	w = w[4:]

	binary.LittleEndian.PutUint64(w, uint64(n))
	w = w[8:]

	for _, b := range sig.Blocks {
		binary.LittleEndian.PutUint64(w, uint64(b.Offset))
		w = w[8:]
		binary.LittleEndian.PutUint32(w, b.Chksum)
		w = w[4:]
		copy(w, b.Digest[:])
		w = w[DigestSize:]
	}

	copy(w, magic)

	return dst.Write(buf)
}

// Decode reads a FileSignature previously written by Encode from src, which
// must have exactly EncodedSize(blocksCount) bytes from its current
// position. Both magics are validated and the blocks array is required to
// already be sorted ascending by Chksum; any violation is a
// KindMalformedSignature error.
func Decode(src ByteStream) (FileSignature, error) {
	var sig FileSignature

	header := make([]byte, magicSize+8+4+8)
	if err := src.Read(header); err != nil {
		return sig, err
	}

	if string(header[:magicSize]) != magic {
		return sig, newError(KindMalformedSignature, nil, "bad header magic")
	}
	h := header[magicSize:]

	sig.FileSize = int64(binary.LittleEndian.Uint64(h))
	h = h[8:]
	sig.BlockSize = int32(binary.LittleEndian.Uint32(h))
	h = h[4:]
	n := binary.LittleEndian.Uint64(h)

	if sig.BlockSize <= 0 {
		return sig, newError(KindMalformedSignature, nil, "non-positive block size %d", sig.BlockSize)
	}

	// n comes straight off the wire and must be validated against the
	// stream's actual remaining length before it ever reaches make: a
	// corrupt or hostile blocksCount must fail as KindMalformedSignature,
	// not allocate an attacker-chosen amount of memory or panic in make.
	if n > uint64(math.MaxInt32) {
		return sig, newError(KindMalformedSignature, nil, "implausible block count %d", n)
	}
	srcSize, err := src.Size()
	if err != nil {
		return sig, err
	}
	pos, err := src.Tell()
	if err != nil {
		return sig, err
	}
	wantRemaining := EncodedSize(int(n)) - int64(len(header))
	gotRemaining := srcSize - pos
	if gotRemaining != wantRemaining {
		return sig, newError(KindMalformedSignature, nil,
			"signature length mismatch: %d bytes remain, expected %d for %d blocks",
			gotRemaining, wantRemaining, n)
	}

	blocks := make([]BlockInfo, n)
	rec := make([]byte, 8+4+DigestSize)
	for i := range blocks {
		if err := src.Read(rec); err != nil {
			return sig, err
		}
		r := rec
		blocks[i].Offset = int64(binary.LittleEndian.Uint64(r))
		r = r[8:]
		blocks[i].Chksum = binary.LittleEndian.Uint32(r)
		r = r[4:]
		copy(blocks[i].Digest[:], r[:DigestSize])

		if i > 0 && blocks[i].Chksum < blocks[i-1].Chksum {
			return sig, newError(KindMalformedSignature, nil,
				"blocks not sorted ascending by checksum at index %d", i)
		}
	}
	sig.Blocks = blocks

	footer := make([]byte, magicSize)
	if err := src.Read(footer); err != nil {
		return sig, err
	}
	if string(footer) != magic {
		return sig, newError(KindMalformedSignature, nil, "bad footer magic")
	}

	size, err := src.Size()
	if err != nil {
		return sig, err
	}
	pos, err := src.Tell()
	if err != nil {
		return sig, err
	}
	if pos != size {
		return sig, newError(KindMalformedSignature, nil,
			"trailing bytes after footer: at %d of %d", pos, size)
	}

	return sig, nil
}
