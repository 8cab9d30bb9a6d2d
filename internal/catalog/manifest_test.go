package catalog_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"warden/internal/catalog"
	"warden/internal/domain"
)

const testKey = "0102030405060708090A0B0C0D0E0F10"

func writeManifest(t *testing.T, dir string, mf catalog.Manifest) string {
	t.Helper()
	path := filepath.Join(dir, "modules.json")
	if err := catalog.WriteManifest(path, mf); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	return path
}

func TestLoadManifest_PlainAndArchive(t *testing.T) {
	dir := t.TempDir()
	plain := []byte("warden-test-module")
	archived := bytes.Repeat([]byte("compressed client module "), 64)

	if err := os.WriteFile(filepath.Join(dir, "mac.bin"), plain, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := catalog.PackFile(filepath.Join(dir, "win.bin.lz4"), archived); err != nil {
		t.Fatalf("PackFile: %v", err)
	}

	path := writeManifest(t, dir, catalog.Manifest{
		Version: 1,
		Modules: []catalog.ModuleEntry{
			{Name: "mac", Platforms: []string{"OSX"}, File: "mac.bin", Key: testKey, ID: "94B1008613CDD446468E7BFD9468CDA3"},
			{
				Name: "win", Platforms: []string{"Win"}, File: "win.bin.lz4", Key: testKey,
				Seed: "00112233445566778899AABBCCDDEEFF", Cipher: "ChaCha20",
				Checks: &catalog.ChecksEntry{Probe: "abc", Magic: 7},
			},
		},
	})

	c, err := catalog.LoadManifest(path, "")
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	mac, _ := c.SelectModule("OSX")
	if !bytes.Equal(mac.Payload, plain) || mac.Key[0] != 0x01 || mac.Key[15] != 0x10 {
		t.Fatalf("mac module loaded incorrectly: %+v", mac)
	}

	win, err := c.SelectModule("Win")
	if err != nil {
		t.Fatalf("SelectModule(Win): %v", err)
	}
	if !bytes.Equal(win.Payload, archived) {
		t.Fatal("archive was not unpacked")
	}
	if win.ID != catalog.ModuleID(archived) {
		t.Fatal("id must be computed over the unpacked payload")
	}
	if win.Suite != domain.SuiteChaCha20 || win.Checks.Probe != "abc" || win.Checks.Magic != 7 {
		t.Fatalf("entry options not applied: %+v", win)
	}
	if win.Seed.String() != "00112233445566778899AABBCCDDEEFF" {
		t.Fatalf("seed: %s", win.Seed)
	}
}

func TestLoadManifest_IDMismatch(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mac.bin"), []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := writeManifest(t, dir, catalog.Manifest{Version: 1, Modules: []catalog.ModuleEntry{
		{Name: "mac", Platforms: []string{"OSX"}, File: "mac.bin", Key: testKey, ID: "94B1008613CDD446468E7BFD9468CDA3"},
	}})

	if _, err := catalog.LoadManifest(path, ""); !errors.Is(err, catalog.ErrModuleIDMismatch) {
		t.Fatalf("want ErrModuleIDMismatch, got %v", err)
	}
}

func TestLoadManifest_Sealed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mac.bin"), []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := writeManifest(t, dir, catalog.Manifest{Version: 1, Modules: []catalog.ModuleEntry{
		{Name: "mac", Platforms: []string{"OSX"}, File: "mac.bin", Key: testKey},
	}})
	sealed := path + catalog.SealedExt
	if err := catalog.SealFile(path, sealed, "hunter2", catalog.KDFScrypt); err != nil {
		t.Fatalf("SealFile: %v", err)
	}

	c, err := catalog.LoadManifest(sealed, "hunter2")
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("modules: got %d", c.Len())
	}

	if _, err := catalog.LoadManifest(sealed, "wrong"); !errors.Is(err, catalog.ErrWrongPassphrase) {
		t.Fatalf("want ErrWrongPassphrase, got %v", err)
	}
	if _, err := catalog.LoadManifest(sealed, ""); !errors.Is(err, catalog.ErrNoPassphrase) {
		t.Fatalf("want ErrNoPassphrase, got %v", err)
	}
}

func TestParseManifest_Rejects(t *testing.T) {
	if _, err := catalog.ParseManifest([]byte(`{"version":2,"modules":[]}`), "."); err == nil {
		t.Fatal("expected error for future version")
	}
	if _, err := catalog.ParseManifest([]byte(`{"version":1,"modules":[]}`), "."); err == nil {
		t.Fatal("expected error for empty manifest")
	}
	if _, err := catalog.ParseManifest([]byte(`{`), "."); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestPackUnpack(t *testing.T) {
	in := bytes.Repeat([]byte{0xAB, 0xCD}, 4096)
	packed, err := catalog.Pack(in)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if len(packed) >= len(in) {
		t.Fatalf("repetitive input did not compress: %d >= %d", len(packed), len(in))
	}
	out, err := catalog.Unpack(packed)
	if err != nil || !bytes.Equal(out, in) {
		t.Fatalf("Unpack mismatch: %v", err)
	}
}

func TestSealWith_Argon2id(t *testing.T) {
	raw := []byte(`{"version":1}`)
	b, err := catalog.SealWith(catalog.KDFArgon2id, "pw", raw)
	if err != nil {
		t.Fatalf("SealWith: %v", err)
	}
	if !bytes.Contains(b, []byte(`"kdf":"argon2id"`)) {
		t.Fatalf("blob does not record its kdf: %s", b)
	}
	got, err := catalog.Open("pw", b)
	if err != nil || !bytes.Equal(got, raw) {
		t.Fatalf("Open: %q %v", got, err)
	}
	if _, err := catalog.Open("nope", b); !errors.Is(err, catalog.ErrWrongPassphrase) {
		t.Fatalf("want ErrWrongPassphrase, got %v", err)
	}
	if _, err := catalog.SealWith("bcrypt", "pw", raw); !errors.Is(err, catalog.ErrUnknownKDF) {
		t.Fatalf("want ErrUnknownKDF, got %v", err)
	}
}
