// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package tdmsync implements a differential file synchronization engine in
// the style of rsync/zsync: given a large remote file and a possibly older
// local copy, it discovers which byte ranges the client already has
// somewhere in its local file and produces a plan enumerating the rest as
// byte ranges to download, so only genuinely missing content crosses the
// network.
//
// The pipeline is Signer (scans a file into a FileSignature), SignatureCodec
// (Encode/Decode, the wire format of a FileSignature), Planner (scans a
// local file against a FileSignature via a PerfectHash-accelerated index
// probe and produces an UpdatePlan), and Apply (reconstructs the output
// file from the plan, the local file, and a downloaded-extras stream). The
// HTTP byte-range transport (HTTPRangeDownloader) and the command-line
// front-end are external collaborators driven by a caller, not by this
// package.
package tdmsync
