// Package warden implements the wire format and the verification math of the
// client integrity protocol.
//
// # Frames
//
// Every frame starts with a one byte opcode. Multi-byte integers are little
// endian. Server to client:
//
//	MODULE_USE            id(16) | key(16) | size(4)
//	MODULE_CACHE          len(2) | data(len), len <= 500
//	CHEAT_CHECKS_REQUEST  len(1) | probe(len)
//	HASH_REQUEST          seed(16)
//
// Client to server:
//
//	MODULE_MISSING, MODULE_OK, MODULE_FAILED  (no body)
//	HASH_RESULT           sha1(transformed key)(20)
//	CHEAT_CHECKS_RESULT   sha1(probe | magic)(20) | md5(probe)(16)
//	MEM_CHECKS_RESULT     ignored
//
// # Challenge
//
// The seed is read as four little-endian 32-bit words and pushed through a
// fixed xor/sub/add/mul pipeline with uint32 wraparound (Transform). The
// client returns the SHA-1 of the resulting "input" key; after verification
// both peers switch to the transformed keys.
//
// This package is pure: it holds no session state and performs no I/O.
package warden
