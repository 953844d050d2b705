// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tdmsync

import (
	"sort"

	"github.com/rs/zerolog"
)

// SegmentUse is a contiguous copy operation in an UpdatePlan: size bytes
// placed at dstOffset in the output file, taken from srcOffset in either
// the remote file (Remote == true) or the local file (Remote == false).
type SegmentUse struct {
	SrcOffset int64
	DstOffset int64
	Size      int64
	Remote    bool
}

// UpdatePlan is the ordered segment list reconstructing a file of FileSize
// bytes: segments are sorted by DstOffset, contiguous with no gaps or
// overlaps, starting at 0 and ending at FileSize.
type UpdatePlan struct {
	Segments    []SegmentUse
	BytesLocal  int64
	BytesRemote int64
	FileSize    int64
}

// Planner scans a local file with a rolling window, probes a remote file's
// signature via a perfect hash, confirms candidate matches with a strong
// digest, and produces an UpdatePlan. Like Signer, a Planner value may be
// reused serially but must not be shared across goroutines concurrently.
type Planner struct {
	// Log receives diagnostic events at Debug/Trace level.
	Log zerolog.Logger
}

// CreatePlan scans local (of length localSize) against sig and returns the
// UpdatePlan that reconstructs sig.FileSize bytes of output from local
// copies plus remote byte ranges.
func (p Planner) CreatePlan(local ByteStream, localSize int64, sig FileSignature) (UpdatePlan, error) {
	plan := UpdatePlan{FileSize: sig.FileSize}

	if len(sig.Blocks) == 0 {
		if sig.FileSize == 0 {
			return plan, nil
		}
		plan.Segments = []SegmentUse{{SrcOffset: 0, DstOffset: 0, Size: sig.FileSize, Remote: true}}
		plan.BytesRemote = sig.FileSize
		return plan, nil
	}

	blockSize := int64(sig.BlockSize)
	if localSize < blockSize {
		return p.finalizePlan(nil, sig)
	}

	n := len(sig.Blocks)
	checksums := make([]uint32, n)
	for i, b := range sig.Blocks {
		checksums[i] = b.Chksum
	}

	phf, err := BuildPerfectHash(checksums)
	if err != nil {
		return plan, err
	}

	found := make([]bool, n)
	var localSegs []SegmentUse

	// Sliding read buffer of size 2*blockSize: the current window is always
	// buffer[buffPtr-blockSize : buffPtr). When buffPtr reaches the end of
	// what's currently filled, the window (the trailing blockSize bytes) is
	// shifted back to the start of the buffer and refilled with up to one
	// more blockSize worth of bytes, keeping each slide O(1) amortized
	// instead of reallocating a window-sized slice on every byte.
	bs := int(blockSize)
	buffer := make([]byte, 2*bs)

	if err := local.Seek(0); err != nil {
		return plan, err
	}
	toRead := localSize
	if toRead > int64(len(buffer)) {
		toRead = int64(len(buffer))
	}
	if err := local.Read(buffer[:toRead]); err != nil {
		return plan, err
	}
	filled := int(toRead)
	readPos := toRead
	buffPtr := bs

	currChksum := rollingChecksum(buffer[:bs])

	matches := 0
	for offset := int64(0); offset+blockSize <= localSize; offset++ {
		window := buffer[buffPtr-bs : buffPtr]

		idx := phf.Evaluate(currChksum)
		if int(idx) < n && checksums[idx] == currChksum {
			left, right := int(idx), int(idx)+1
			for left > 0 && checksums[left-1] == currChksum {
				left--
			}
			for right < n && checksums[right] == currChksum {
				right++
			}

			anyUnmatched := false
			for j := left; j < right; j++ {
				if !found[j] {
					anyUnmatched = true
					break
				}
			}

			if anyUnmatched {
				digest := StrongDigest(window)
				for j := left; j < right; j++ {
					if found[j] {
						continue
					}
					if digest == sig.Blocks[j].Digest {
						found[j] = true
						matches++
						localSegs = append(localSegs, SegmentUse{
							SrcOffset: offset,
							DstOffset: sig.Blocks[j].Offset,
							Size:      blockSize,
							Remote:    false,
						})
					}
				}
			}
		}

		if offset+blockSize < localSize {
			added := buffer[buffPtr]
			removed := buffer[buffPtr-bs]
			currChksum = rollingSlide(currChksum, added, removed, bs)
			buffPtr++

			if buffPtr == filled {
				copy(buffer[:bs], buffer[filled-bs:filled])
				buffPtr = bs

				remaining := localSize - readPos
				next := int64(bs)
				if remaining < next {
					next = remaining
				}
				if next > 0 {
					if err := local.Read(buffer[bs : bs+int(next)]); err != nil {
						return plan, err
					}
				}
				readPos += next
				filled = bs + int(next)
			}
		}
	}

	p.Log.Debug().Int("blocks", n).Int("matches", matches).Msg("plan scan complete")

	return p.finalizePlan(localSegs, sig)
}

// finalizePlan coalesces the local-segment matches discovered by the scan,
// fills the gaps between them with remote segments carrying the identity
// srcOffset == dstOffset mapping (critical, since a Downloader addresses
// remote bytes by their position in the output file, i.e. by dstOffset),
// and computes the byte totals.
func (p Planner) finalizePlan(localSegs []SegmentUse, sig FileSignature) (UpdatePlan, error) {
	plan := UpdatePlan{FileSize: sig.FileSize}

	sort.Slice(localSegs, func(i, j int) bool {
		return localSegs[i].DstOffset < localSegs[j].DstOffset
	})

	// The anchored tail block (see blockOffset) can overlap the block before
	// it in remote-offset space, so two matches discovered independently by
	// the scan may cover the same output bytes twice. Trim each segment's
	// leading edge against whatever the previous one already covers; a
	// segment fully shadowed by its predecessor is dropped.
	var trimmed []SegmentUse
	var lastCovered int64
	for _, seg := range localSegs {
		if seg.DstOffset < lastCovered {
			overlap := lastCovered - seg.DstOffset
			if overlap >= seg.Size {
				continue
			}
			seg.SrcOffset += overlap
			seg.DstOffset += overlap
			seg.Size -= overlap
		}
		trimmed = append(trimmed, seg)
		lastCovered = seg.DstOffset + seg.Size
	}

	coalesced := coalesceSegments(trimmed)

	var segments []SegmentUse
	lastCovered = 0
	for _, seg := range coalesced {
		if seg.DstOffset > lastCovered {
			segments = append(segments, SegmentUse{
				SrcOffset: lastCovered,
				DstOffset: lastCovered,
				Size:      seg.DstOffset - lastCovered,
				Remote:    true,
			})
		}
		segments = append(segments, seg)
		lastCovered = seg.DstOffset + seg.Size
	}
	if sig.FileSize > lastCovered {
		segments = append(segments, SegmentUse{
			SrcOffset: lastCovered,
			DstOffset: lastCovered,
			Size:      sig.FileSize - lastCovered,
			Remote:    true,
		})
	}

	sort.Slice(segments, func(i, j int) bool {
		return segments[i].DstOffset < segments[j].DstOffset
	})

	segments = coalesceSegments(segments)

	for _, seg := range segments {
		if seg.Remote {
			plan.BytesRemote += seg.Size
		} else {
			plan.BytesLocal += seg.Size
		}
	}
	plan.Segments = segments

	if err := validatePlan(plan); err != nil {
		return plan, err
	}
	return plan, nil
}

// coalesceSegments merges adjacent, already dstOffset-sorted segments that
// share the same Remote flag and are contiguous in both src and dst space.
func coalesceSegments(segs []SegmentUse) []SegmentUse {
	if len(segs) == 0 {
		return nil
	}
	out := make([]SegmentUse, 0, len(segs))
	cur := segs[0]
	for _, seg := range segs[1:] {
		if seg.Remote == cur.Remote &&
			cur.DstOffset+cur.Size == seg.DstOffset &&
			cur.SrcOffset+cur.Size == seg.SrcOffset {
			cur.Size += seg.Size
			continue
		}
		out = append(out, cur)
		cur = seg
	}
	out = append(out, cur)
	return out
}

// validatePlan checks the disjoint-exact-cover invariant: segments span
// [0, FileSize) with no gaps or overlaps.
func validatePlan(plan UpdatePlan) error {
	if plan.FileSize == 0 {
		if len(plan.Segments) != 0 {
			return newError(KindInvariantViolated, nil, "empty file produced a non-empty plan")
		}
		return nil
	}
	if len(plan.Segments) == 0 {
		return newError(KindInvariantViolated, nil, "non-empty file produced an empty plan")
	}
	if plan.Segments[0].DstOffset != 0 {
		return newError(KindInvariantViolated, nil, "plan does not start at offset 0")
	}
	for i := 0; i < len(plan.Segments); i++ {
		seg := plan.Segments[i]
		if seg.Size <= 0 {
			return newError(KindInvariantViolated, nil, "segment %d has non-positive size", i)
		}
		if i+1 < len(plan.Segments) {
			next := plan.Segments[i+1]
			if seg.DstOffset+seg.Size != next.DstOffset {
				return newError(KindInvariantViolated, nil,
					"gap or overlap between segment %d and %d", i, i+1)
			}
		}
	}
	last := plan.Segments[len(plan.Segments)-1]
	if last.DstOffset+last.Size != plan.FileSize {
		return newError(KindInvariantViolated, nil, "plan does not end at file size")
	}
	return nil
}
