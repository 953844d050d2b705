// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tdmsync

import "sort"

// DefaultBlockSize is used when a caller doesn't specify one.
const DefaultBlockSize = 4096

// BlockInfo is a single entry in a remote file's block index: the byte
// offset a fixed-size block begins at, its rolling checksum, and its strong
// digest. The layout is packed with no padding when serialized (see
// codec.go) since it is written directly to the wire.
type BlockInfo struct {
	Offset int64
	Chksum uint32
	Digest [DigestSize]byte
}

// FileSignature is the per-block metadata table for a file: its total size,
// the block size used to build the table, and the sorted-by-checksum block
// list. It is produced once by Signer, transported as bytes, and consumed
// read-only by Planner.
type FileSignature struct {
	FileSize  int64
	BlockSize int32
	Blocks    []BlockInfo
}

// blockCount returns ceil(fileSize / blockSize), or 0 if fileSize < blockSize.
func blockCount(fileSize int64, blockSize int32) int {
	if fileSize < int64(blockSize) {
		return 0
	}
	n := fileSize / int64(blockSize)
	if fileSize%int64(blockSize) != 0 {
		n++
	}
	return int(n)
}

// blockOffset returns the anchored offset of block i out of n blocks
// covering a file of fileSize bytes with the given blockSize: every block is
// exactly blockSize bytes, and the last block's window slides back so it
// ends exactly at fileSize, guaranteeing full tail coverage even when the
// file length isn't a multiple of blockSize.
func blockOffset(i, fileSize int64, blockSize int32) int64 {
	off := i * int64(blockSize)
	maxOff := fileSize - int64(blockSize)
	if off > maxOff {
		off = maxOff
	}
	return off
}

// sortBlocksByChksum sorts blocks ascending by Chksum. Ties are broken
// arbitrarily.
func sortBlocksByChksum(blocks []BlockInfo) {
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Chksum < blocks[j].Chksum
	})
}
