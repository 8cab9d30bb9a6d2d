package catalog

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// ArchiveExt marks payload files stored as LZ4 frames.
const ArchiveExt = ".lz4"

// Pack compresses a client payload into an LZ4 frame for storage.
func Pack(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, fmt.Errorf("lz4 write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("lz4 close: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack restores a payload stored with Pack.
func Unpack(archive []byte) ([]byte, error) {
	var buf bytes.Buffer
	zr := lz4.NewReader(bytes.NewReader(archive))
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, fmt.Errorf("lz4 read: %w", err)
	}
	return buf.Bytes(), nil
}

// PackFile writes payload as an LZ4 archive at path.
func PackFile(path string, payload []byte) error {
	b, err := Pack(payload)
	if err != nil {
		return err
	}
	return writeFile(path, b, 0o644)
}
