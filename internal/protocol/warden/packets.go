package warden

import (
	"encoding/binary"
	"errors"
	"fmt"

	"warden/internal/domain"
)

// ModuleChunkSize is the largest MODULE_CACHE burst.
const ModuleChunkSize = 500

// MaxProbeLen is bounded by the one byte length prefix.
const MaxProbeLen = 255

const moduleUseSize = 1 + domain.KeySize + domain.KeySize + 4

var (
	ErrEmptyFrame    = errors.New("warden: empty frame")
	ErrShortFrame    = errors.New("warden: short frame")
	ErrTrailingBytes = errors.New("warden: trailing bytes")
	ErrProbeTooLong  = errors.New("warden: probe longer than 255 bytes")
)

// ---------- server -> client ----------

// ModuleUse announces the module the client must load.
type ModuleUse struct {
	ID   domain.ModuleID
	Key  domain.ModuleKey
	Size uint32
}

// EncodeModuleUse builds a MODULE_USE frame.
func EncodeModuleUse(m ModuleUse) []byte {
	b := make([]byte, moduleUseSize)
	b[0] = byte(SMSGModuleUse)
	copy(b[1:], m.ID[:])
	copy(b[1+domain.KeySize:], m.Key[:])
	binary.LittleEndian.PutUint32(b[1+2*domain.KeySize:], m.Size)
	return b
}

// EncodeModuleChunks splits payload into MODULE_CACHE frames.
func EncodeModuleChunks(payload []byte) [][]byte {
	var frames [][]byte
	for len(payload) > 0 {
		n := min(len(payload), ModuleChunkSize)
		b := make([]byte, 3+n)
		b[0] = byte(SMSGModuleCache)
		binary.LittleEndian.PutUint16(b[1:], uint16(n))
		copy(b[3:], payload[:n])
		frames = append(frames, b)
		payload = payload[n:]
	}
	return frames
}

// EncodeHashRequest builds a HASH_REQUEST frame.
func EncodeHashRequest(seed domain.Seed) []byte {
	b := make([]byte, 1+len(seed))
	b[0] = byte(SMSGHashRequest)
	copy(b[1:], seed[:])
	return b
}

// EncodeCheckRequest builds a CHEAT_CHECKS_REQUEST frame.
func EncodeCheckRequest(probe []byte) ([]byte, error) {
	if len(probe) > MaxProbeLen {
		return nil, ErrProbeTooLong
	}
	b := make([]byte, 2+len(probe))
	b[0] = byte(SMSGCheatChecksRequest)
	b[1] = uint8(len(probe))
	copy(b[2:], probe)
	return b, nil
}

// ServerMessage is a decrypted server frame split into opcode and body.
type ServerMessage struct {
	Opcode ServerOpcode
	Body   []byte
}

// DecodeServerMessage splits a decrypted server frame.
func DecodeServerMessage(frame []byte) (ServerMessage, error) {
	if len(frame) == 0 {
		return ServerMessage{}, ErrEmptyFrame
	}
	return ServerMessage{Opcode: ServerOpcode(frame[0]), Body: frame[1:]}, nil
}

// DecodeModuleUse parses a MODULE_USE body.
func DecodeModuleUse(body []byte) (ModuleUse, error) {
	var m ModuleUse
	if err := exact(body, moduleUseSize-1); err != nil {
		return m, fmt.Errorf("module use: %w", err)
	}
	copy(m.ID[:], body)
	copy(m.Key[:], body[domain.KeySize:])
	m.Size = binary.LittleEndian.Uint32(body[2*domain.KeySize:])
	return m, nil
}

// DecodeModuleChunk parses a MODULE_CACHE body.
func DecodeModuleChunk(body []byte) ([]byte, error) {
	if len(body) < 2 {
		return nil, fmt.Errorf("module chunk: %w", ErrShortFrame)
	}
	n := int(binary.LittleEndian.Uint16(body))
	if err := exact(body[2:], n); err != nil {
		return nil, fmt.Errorf("module chunk: %w", err)
	}
	return body[2:], nil
}

// DecodeHashRequest parses a HASH_REQUEST body.
func DecodeHashRequest(body []byte) (domain.Seed, error) {
	var seed domain.Seed
	if err := exact(body, len(seed)); err != nil {
		return seed, fmt.Errorf("hash request: %w", err)
	}
	copy(seed[:], body)
	return seed, nil
}

// DecodeCheckRequest parses a CHEAT_CHECKS_REQUEST body into its probe.
func DecodeCheckRequest(body []byte) ([]byte, error) {
	if len(body) < 1 {
		return nil, fmt.Errorf("check request: %w", ErrShortFrame)
	}
	if err := exact(body[1:], int(body[0])); err != nil {
		return nil, fmt.Errorf("check request: %w", err)
	}
	return body[1:], nil
}

// ---------- client -> server ----------

// EncodeClientOpcode builds a body-less client frame.
func EncodeClientOpcode(op ClientOpcode) []byte { return []byte{byte(op)} }

// EncodeHashResult builds a HASH_RESULT frame.
func EncodeHashResult(digest [HashResultSize]byte) []byte {
	return append([]byte{byte(CMSGHashResult)}, digest[:]...)
}

// EncodeCheckResult builds a CHEAT_CHECKS_RESULT frame.
func EncodeCheckResult(r CheckResult) []byte {
	b := make([]byte, 0, 1+CheckResultSize)
	b = append(b, byte(CMSGCheatChecksResult))
	b = append(b, r.SHA1[:]...)
	return append(b, r.MD5[:]...)
}

// ClientMessage is a decrypted client frame split into opcode and body.
type ClientMessage struct {
	Opcode ClientOpcode
	Body   []byte
}

// DecodeClientMessage splits a decrypted client frame.
func DecodeClientMessage(frame []byte) (ClientMessage, error) {
	if len(frame) == 0 {
		return ClientMessage{}, ErrEmptyFrame
	}
	return ClientMessage{Opcode: ClientOpcode(frame[0]), Body: frame[1:]}, nil
}

// DecodeHashResult parses a HASH_RESULT body.
func DecodeHashResult(body []byte) ([HashResultSize]byte, error) {
	var digest [HashResultSize]byte
	if err := exact(body, HashResultSize); err != nil {
		return digest, fmt.Errorf("hash result: %w", err)
	}
	copy(digest[:], body)
	return digest, nil
}

// DecodeCheckResult parses a CHEAT_CHECKS_RESULT body.
func DecodeCheckResult(body []byte) (CheckResult, error) {
	var r CheckResult
	if err := exact(body, CheckResultSize); err != nil {
		return r, fmt.Errorf("check result: %w", err)
	}
	copy(r.SHA1[:], body)
	copy(r.MD5[:], body[len(r.SHA1):])
	return r, nil
}

func exact(body []byte, n int) error {
	switch {
	case len(body) < n:
		return ErrShortFrame
	case len(body) > n:
		return ErrTrailingBytes
	}
	return nil
}
