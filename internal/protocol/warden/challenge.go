package warden

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"

	"warden/internal/domain"
)

// Transform constants shared with the reference Mac module.
const (
	challengeXor uint32 = 0xDEADBEEF
	challengeSub uint32 = 0x35014542
	challengeAdd uint32 = 0x05313F22
	challengeMul uint32 = 0x1337F00D

	rotateSub uint32 = 0x6A028A84
	rotateAdd uint32 = 0x0A627E44
)

// HashResultSize is the length of a HASH_RESULT digest.
const HashResultSize = sha1.Size

// DefaultSeed is the seed the reference Mac module
// (0DBBF209A27B1E279A9FEC5C168A15F7) was built against.
var DefaultSeed = domain.MustSeed("4D808D2C77D905C41A6380EC08586AFE")

// Words splits a seed into four little-endian 32-bit words.
func Words(seed domain.Seed) [4]uint32 {
	var w [4]uint32
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(seed[i*4:])
	}
	return w
}

func keyFromWords(w [4]uint32) domain.DirectionalKey {
	var k domain.DirectionalKey
	for i, v := range w {
		binary.LittleEndian.PutUint32(k[i*4:], v)
	}
	return k
}

// Transform runs the seed through the module's key pipeline.
//
// in is the key the client proves knowledge of (and the next client->server
// key); out is the next server->client key. Word 3 of out multiplies the
// already multiplied word 3 of in.
func Transform(seed domain.Seed) (in, out domain.DirectionalKey) {
	w := Words(seed)

	var kin, kout [4]uint32
	kin[0] = w[0] ^ challengeXor
	kin[1] = w[1] - challengeSub
	kin[2] = w[2] + challengeAdd
	kin[3] = w[3] * challengeMul

	kout[0] = w[0]
	kout[1] = w[1] - rotateSub
	kout[2] = w[2] + rotateAdd
	kout[3] = challengeMul * kin[3]

	return keyFromWords(kin), keyFromWords(kout)
}

// ExpectedHashResult is the digest a genuine client returns for seed.
func ExpectedHashResult(seed domain.Seed) [HashResultSize]byte {
	in, _ := Transform(seed)
	return sha1.Sum(in[:])
}

// VerifyHashResult compares got with the expected digest in constant time.
func VerifyHashResult(seed domain.Seed, got [HashResultSize]byte) bool {
	want := ExpectedHashResult(seed)
	return subtle.ConstantTimeCompare(want[:], got[:]) == 1
}
