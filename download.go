// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tdmsync

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// ByteRange is one (offset, length) pair a Downloader is asked to fetch.
type ByteRange struct {
	Offset int64
	Length int64
}

// Downloader fetches an ordered list of byte ranges from a URL and writes
// their concatenated bytes, in list order, into sink. The core never invokes
// one itself; Planner only produces the plan that tells a Downloader which
// ranges to fetch (every remote SegmentUse, keyed by its DstOffset).
type Downloader interface {
	Download(url string, ranges []ByteRange, sink ByteStream) error
}

// RangesFromPlan extracts the ordered list of byte ranges a Downloader must
// fetch to satisfy plan's remote segments, keyed by DstOffset as required:
// a Downloader addresses the remote file by output position, not by the
// remote file's own layout (the two coincide for a SegmentUse with
// Remote == true, since remote gap segments carry the identity
// srcOffset == dstOffset mapping).
func RangesFromPlan(plan UpdatePlan) []ByteRange {
	var ranges []ByteRange
	for _, seg := range plan.Segments {
		if seg.Remote {
			ranges = append(ranges, ByteRange{Offset: seg.DstOffset, Length: seg.Size})
		}
	}
	return ranges
}

// HTTPRangeDownloader is a Downloader built on net/http's Range header
// support (RFC 7233): a single range becomes a plain GET with one Range
// header, expecting 206 Partial Content; multiple ranges are joined into one
// comma-separated Range header, expecting a multipart/byteranges response
// that mime/multipart can parse using the boundary from Content-Type. A
// server that doesn't advertise "Accept-Ranges: bytes", or that answers 200
// (ignoring the range request entirely), is treated as HttpUnsupported.
type HTTPRangeDownloader struct {
	Client *http.Client
	Log    zerolog.Logger
}

// Download fetches ranges from url and writes their concatenated bytes, in
// list order, to sink.
func (d HTTPRangeDownloader) Download(url string, ranges []ByteRange, sink ByteStream) error {
	if len(ranges) == 0 {
		return nil
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	var totalSize int64
	rangeSpecs := make([]string, len(ranges))
	for i, r := range ranges {
		rangeSpecs[i] = fmt.Sprintf("%d-%d", r.Offset, r.Offset+r.Length-1)
		totalSize += r.Length
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return newError(KindIO, err, "building range request")
	}
	req.Header.Set("Range", "bytes="+strings.Join(rangeSpecs, ","))

	resp, err := client.Do(req)
	if err != nil {
		return newError(KindIO, err, "performing range request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return newError(KindHTTPUnsupported, nil, "range request returned status %d", resp.StatusCode)
	}

	var written int64
	if len(ranges) == 1 {
		written, err = d.downloadSingle(resp, sink)
	} else {
		written, err = d.downloadMulti(resp, sink)
	}
	if err != nil {
		return err
	}

	if written != totalSize {
		return newError(KindRangeMismatch, nil,
			"downloaded %d bytes, expected %d across %d ranges", written, totalSize, len(ranges))
	}

	d.Log.Debug().Int("ranges", len(ranges)).Int64("bytes", written).Msg("download complete")
	return nil
}

// downloadSingle handles the single-range case: the server is expected to
// answer 206 Partial Content with exactly the requested bytes as the body.
func (d HTTPRangeDownloader) downloadSingle(resp *http.Response, sink ByteStream) (int64, error) {
	if resp.StatusCode != http.StatusPartialContent {
		return 0, newError(KindHTTPUnsupported, nil,
			"server did not honor single-range request, status %d", resp.StatusCode)
	}
	if !acceptsRanges(resp) {
		return 0, newError(KindHTTPUnsupported, nil, "server does not advertise Accept-Ranges: bytes")
	}

	n, err := copyToSink(resp.Body, sink)
	if err != nil {
		return n, newError(KindIO, err, "reading single-range body")
	}
	return n, nil
}

// downloadMulti handles the multi-range case: the server is expected to
// answer with a multipart/byteranges response, which mime/multipart parses
// into one part per requested range, in request order; each part's body is
// written to sink in that same order.
func (d HTTPRangeDownloader) downloadMulti(resp *http.Response, sink ByteStream) (int64, error) {
	if resp.StatusCode != http.StatusPartialContent {
		return 0, newError(KindHTTPUnsupported, nil,
			"server did not honor multi-range request, status %d", resp.StatusCode)
	}
	if !acceptsRanges(resp) {
		return 0, newError(KindHTTPUnsupported, nil, "server does not advertise Accept-Ranges: bytes")
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/byteranges") {
		return 0, newError(KindHTTPUnsupported, nil,
			"expected multipart/byteranges response, got %q", resp.Header.Get("Content-Type"))
	}
	boundary, ok := params["boundary"]
	if !ok || boundary == "" {
		return 0, newError(KindHTTPUnsupported, nil, "multipart response missing boundary")
	}

	mr := multipart.NewReader(resp.Body, boundary)
	var total int64
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, newError(KindIO, err, "reading multipart part")
		}
		n, err := copyToSink(part, sink)
		if err != nil {
			return total, newError(KindIO, err, "reading multipart part body")
		}
		total += n
	}
	return total, nil
}

func acceptsRanges(resp *http.Response) bool {
	return strings.Contains(resp.Header.Get("Accept-Ranges"), "bytes")
}

// copyToSink writes r's entire contents to sink starting at sink's current
// position, returning the number of bytes written.
func copyToSink(r io.Reader, sink ByteStream) (int64, error) {
	buf := make([]byte, 32*1024)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := sink.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}
