package catalog

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"warden/internal/util/memzero"
)

// SealedExt marks manifests protected with Seal.
const SealedExt = ".sealed"

// sealedFormatVersion is the current version of the sealed blob.
const sealedFormatVersion = 1

// KDF names the passphrase key derivation of a sealed blob.
type KDF string

const (
	KDFScrypt   KDF = "scrypt"
	KDFArgon2id KDF = "argon2id"
)

var (
	ErrUnknownKDF = errors.New("unknown key derivation function")
	// Returned when the passphrase is incorrect or the blob has been modified.
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted manifest")
	ErrNoPassphrase    = errors.New("passphrase required for sealed manifest")
)

// sealedBlob is the on-disk JSON structure holding the ciphertext and KDF
// parameters. An empty KDF means scrypt.
type sealedBlob struct {
	V       int    `json:"v"`
	KDF     KDF    `json:"kdf,omitempty"`
	Salt    []byte `json:"salt"`
	N       int    `json:"scrypt_N,omitempty"`
	R       int    `json:"scrypt_r,omitempty"`
	P       int    `json:"scrypt_p,omitempty"`
	Time    uint32 `json:"argon2_t,omitempty"`
	Memory  uint32 `json:"argon2_m,omitempty"`
	Threads uint8  `json:"argon2_p,omitempty"`
	Cipher  []byte `json:"cipher"`
}

// Tunables for key derivation.
func scryptParams() (N, r, p int) { return 1 << 15, 8, 1 }

func argon2Params() (t, m uint32, p uint8) { return 1, 64 * 1024, 4 }

func (bl *sealedBlob) key(passphrase string) ([]byte, error) {
	switch bl.KDF {
	case "", KDFScrypt:
		return scrypt.Key([]byte(passphrase), bl.Salt, bl.N, bl.R, bl.P, chacha20poly1305.KeySize)
	case KDFArgon2id:
		if bl.Time == 0 || bl.Memory == 0 || bl.Threads == 0 {
			return nil, fmt.Errorf("argon2id: missing parameters")
		}
		return argon2.IDKey([]byte(passphrase), bl.Salt, bl.Time, bl.Memory, bl.Threads, chacha20poly1305.KeySize), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKDF, bl.KDF)
	}
}

// Seal encrypts raw under a scrypt key derived from passphrase.
func Seal(passphrase string, raw []byte) ([]byte, error) {
	return SealWith(KDFScrypt, passphrase, raw)
}

// SealWith encrypts raw under a key derived from passphrase with kdf.
func SealWith(kdf KDF, passphrase string, raw []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	bl := sealedBlob{V: sealedFormatVersion, KDF: kdf, Salt: salt[:]}
	switch kdf {
	case KDFScrypt:
		bl.N, bl.R, bl.P = scryptParams()
	case KDFArgon2id:
		bl.Time, bl.Memory, bl.Threads = argon2Params()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKDF, kdf)
	}

	key, err := bl.key(passphrase)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte // zero nonce; the salt makes every key unique
	bl.Cipher = aead.Seal(nil, nonce[:], raw, salt[:])
	return json.Marshal(bl)
}

// Open reverses Seal.
func Open(passphrase string, b []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}
	var bl sealedBlob
	if err := json.Unmarshal(b, &bl); err != nil {
		return nil, fmt.Errorf("sealed blob: %w", err)
	}
	if bl.V > sealedFormatVersion {
		return nil, fmt.Errorf("unsupported sealed format version %d", bl.V)
	}

	key, err := bl.key(passphrase)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], bl.Cipher, bl.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

// SealFile seals the manifest at src with kdf and writes it to dst.
func SealFile(src, dst, passphrase string, kdf KDF) error {
	raw, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	b, err := SealWith(kdf, passphrase, raw)
	if err != nil {
		return err
	}
	return writeFile(dst, b, 0o600)
}
