// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tdmsync

import "math/bits"

// rollingTable is a fixed 256-entry table of 32-bit constants, one per
// possible byte value, used by RollingChecksum to fold a window's bytes into
// a 32-bit cyclic-shift hash. It is package-level and read-only: every piece
// of mutable rolling-hash state lives in the caller's own uint32, never here,
// so concurrent callers never contend on shared state.
var rollingTable = [256]uint32{
	0xf5606615, 0x950e87d7, 0x9e6b6cf8, 0x2c61275c,
	0x042db923, 0x1f00bca0, 0xa9eab706, 0x6dbca290,
	0x30cffdda, 0x4c10a4fe, 0xc4fd394d, 0xf26fff4c,
	0x786a6d2d, 0x6814a2bc, 0x6c8042c5, 0xa26b351e,
	0xbc051c6c, 0x54760e7f, 0xa5a4666d, 0xd4c08880,
	0xeed8f1e7, 0x29610ae0, 0xfe5213e5, 0xc34bd8e2,
	0xe9fb123d, 0x6c50afb6, 0xa2aa0b9d, 0x6f28d015,
	0xebac94af, 0x4e385994, 0xadba52ce, 0x194f9545,
	0x588f882f, 0xc675ce05, 0x1d4b7ef2, 0x57de8c05,
	0x2733e933, 0xd998efd8, 0x3f8f3201, 0x6df216c3,
	0xcb57d5d8, 0x11dc6f3f, 0x22025e05, 0x8860a847,
	0xaa6ef630, 0x33176469, 0xc5b864d7, 0x607507eb,
	0x8d29b146, 0x7a2f1108, 0x6fc24b83, 0xda10faaa,
	0x2fcb9940, 0x2de288f1, 0xef041066, 0xb98937df,
	0xd355871e, 0xdd4b712e, 0x4a2e3224, 0xc5b79031,
	0xfa017ed7, 0x07fdc889, 0x1198bf15, 0x81eeadd7,
	0x425a7de1, 0x3a46305c, 0x66e0440d, 0xaaabc8d3,
	0xc51d1a5e, 0x3371364f, 0x1ac44b70, 0x4763dd19,
	0x5646e6d0, 0x016590c5, 0x81e4b9e7, 0x0b7a6e1d,
	0xf16e981a, 0xe5a2a8be, 0xa2927979, 0x1167fba4,
	0x1b534b87, 0x3d01ac0f, 0x5532c867, 0xd27a5f0f,
	0x358b24d3, 0xee26cbc0, 0xca3c6a00, 0x9bdb39b2,
	0x1a741555, 0x8de06fbe, 0x2186c8b5, 0xd6257b49,
	0x539445f3, 0xdee7539c, 0x1ec1b0b1, 0x4307513f,
	0xeffd4d2d, 0x1d790bca, 0x43cf423a, 0xde18f50a,
	0x3537a844, 0xd36c78ab, 0x1a293b3b, 0x64b5e3f8,
	0x7646f8a9, 0xe8eef3d6, 0xb047719d, 0xa88d379d,
	0x03ddc3bf, 0xf177d49f, 0x52965bca, 0xa745fdd5,
	0x7048daca, 0xd0b6a46a, 0x852e0400, 0xfce79398,
	0x6320dbe3, 0x760c9b75, 0x80271e94, 0x4e52b419,
	0x8aa18f43, 0x293f6584, 0x444ed0f2, 0x520e015e,
	0xb0baf029, 0x793ff51b, 0x8f86a26a, 0x7ad95556,
	0xec8602d9, 0x1c720603, 0xd487d342, 0xd08e7565,
	0x0b43dbfb, 0x31028829, 0x8e59ea07, 0xd50ca99e,
	0x6dbbac73, 0x6c24e82c, 0x8e4595df, 0xb7a13dce,
	0xf011e633, 0xe91b8ec1, 0xed9a76b9, 0x9293bf4a,
	0xcb8031fe, 0x75c33f8f, 0x85989296, 0x1e7c31d3,
	0xddfc20fe, 0x5574e314, 0x9930e76e, 0xd17dad33,
	0x3f8666ee, 0xacfbba2a, 0x0deef007, 0xa4e30783,
	0xe94f47b0, 0x8fcd110c, 0x95d74835, 0xe1660a41,
	0x227d512d, 0xd6d91d39, 0x69cbe6eb, 0x2abb0189,
	0x6a921843, 0x09cea2a8, 0x93a8b5d8, 0x3fe9e764,
	0xd16bc8be, 0x602f8e87, 0xd7304cb6, 0xe376bd78,
	0x61ef7dfc, 0x748781c9, 0x496a590b, 0xff5e243c,
	0x3d71d058, 0x089934a9, 0x1d2e1a2e, 0x3deadc7d,
	0x1233f1e0, 0xe443e603, 0xb4a20569, 0x5ab59d10,
	0x3ede6f12, 0x658141e7, 0x27762b7b, 0xf5d46d81,
	0x8b87cfcb, 0xad1dd140, 0x60083c7d, 0xf9afa647,
	0x611b9b59, 0xb7a68aa8, 0xa86fc09c, 0xd828056e,
	0x7893032b, 0x1c0ae9a8, 0xa34be96a, 0x34c8a05c,
	0x5a10eeaf, 0xc966aed6, 0x921082df, 0x6b7e21f0,
	0x07c331a3, 0x6e5d9a30, 0x54f57983, 0x3a0806a7,
	0xf7767fd6, 0x0a07a198, 0x83f43dc4, 0xf0723a83,
	0x82414d3f, 0xfb65e625, 0x106025b5, 0x504516f2,
	0xfeb859eb, 0xa0d72f15, 0x3ea6fb4d, 0x11560052,
	0x3b97b6c9, 0x1be3ae0c, 0x64b97756, 0x5fe2b113,
	0x97dea5e8, 0x5a8a9440, 0xbf1317f8, 0xc330642b,
	0xff594f79, 0xf0b02956, 0x2b1b1e58, 0xa4002d90,
	0x2912ab9f, 0xba351d1d, 0x79073c59, 0x56761e88,
	0xa373e01b, 0x3912a0fc, 0xd0efd4ff, 0xec004af1,
	0x03d33d87, 0x89195512, 0x1a44dfa0, 0x64f85da9,
	0xefb4cad1, 0x21d287d8, 0x08d75496, 0x1732b75d,
	0xc6251a5c, 0x27623245, 0xec5093da, 0x987abb69,
	0x628e21c8, 0xea45cdaf, 0x4d8a9084, 0x0272834f,
}

// rollingChecksum computes the 32-bit cyclic-shift rolling checksum of
// block. Each byte folds into the hash as h = rotl(h, 1) XOR table[b]; when
// the window length is a multiple of 32 a byte's contribution is
// automatically XOR-cancelled out 32 slides later, because rotation is
// periodic over 32 bits. For window lengths that aren't a multiple of 32
// (the default 4096 always is; some tests use smaller windows) rollingSlide
// compensates by rotating the departing byte's table entry by the window
// length explicitly instead of relying on the coincidental cancellation.
func rollingChecksum(block []byte) uint32 {
	var h uint32
	for _, b := range block {
		h = bits.RotateLeft32(h, 1) ^ rollingTable[b]
	}
	return h
}

// rollingSlide advances a rolling checksum of a window of length windowLen
// by one byte: added enters the window at its tail, removed leaves it at
// its head. It returns the checksum of the window shifted one byte forward.
func rollingSlide(h uint32, added, removed byte, windowLen int) uint32 {
	return bits.RotateLeft32(h, 1) ^ bits.RotateLeft32(rollingTable[removed], windowLen) ^ rollingTable[added]
}
