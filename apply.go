// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tdmsync

// Apply reconstructs the output file described by plan: local segments are
// read from local at their srcOffset, remote segments are read
// sequentially from extras (which must hold exactly plan.BytesRemote bytes,
// the concatenation of every remote segment's bytes in plan order — the
// same order a Downloader is asked to fetch them in). Segments are written
// to output in plan (dstOffset) order.
func Apply(local, extras, output ByteStream, plan UpdatePlan) error {
	extrasSize, err := extras.Size()
	if err != nil {
		return err
	}
	if extrasSize != plan.BytesRemote {
		return newError(KindRangeMismatch, nil,
			"extras stream has %d bytes, plan expects %d remote bytes", extrasSize, plan.BytesRemote)
	}

	if err := extras.Seek(0); err != nil {
		return err
	}

	for _, seg := range plan.Segments {
		var buf []byte
		if seg.Remote {
			buf = make([]byte, seg.Size)
			if err := extras.Read(buf); err != nil {
				return err
			}
		} else {
			buf, err = readAt(local, seg.SrcOffset, seg.Size)
			if err != nil {
				return err
			}
		}

		if err := output.Seek(seg.DstOffset); err != nil {
			return err
		}
		if err := output.Write(buf); err != nil {
			return err
		}
	}

	outSize, err := output.Size()
	if err != nil {
		return err
	}
	if outSize != plan.FileSize {
		return newError(KindInvariantViolated, nil,
			"output size %d does not match plan file size %d", outSize, plan.FileSize)
	}

	return nil
}
