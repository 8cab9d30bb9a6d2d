package warden

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
)

// DefaultProbe and DefaultMagic are the check parameters of the reference
// Mac module.
const (
	DefaultProbe        = "Test string!"
	DefaultMagic uint32 = 0xFEEDFACE
)

// CheckResultSize is the body length of a CHEAT_CHECKS_RESULT frame.
const CheckResultSize = sha1.Size + md5.Size

// CheckResult is the proof pair returned for a check request.
type CheckResult struct {
	SHA1 [sha1.Size]byte
	MD5  [md5.Size]byte
}

// ExpectedCheckResult computes SHA1(probe || LE32(magic)) and MD5(probe).
func ExpectedCheckResult(probe []byte, magic uint32) CheckResult {
	var m [4]byte
	binary.LittleEndian.PutUint32(m[:], magic)

	h := sha1.New()
	h.Write(probe)
	h.Write(m[:])

	var r CheckResult
	h.Sum(r.SHA1[:0])
	r.MD5 = md5.Sum(probe)
	return r
}

// Mismatches names the digests of got that differ from want; nil means the
// result verified. Both digests are always compared.
func Mismatches(want, got CheckResult) []string {
	var bad []string
	if subtle.ConstantTimeCompare(want.SHA1[:], got.SHA1[:]) != 1 {
		bad = append(bad, "sha1")
	}
	if subtle.ConstantTimeCompare(want.MD5[:], got.MD5[:]) != 1 {
		bad = append(bad, "md5")
	}
	return bad
}
