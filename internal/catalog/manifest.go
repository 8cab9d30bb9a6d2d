package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"warden/internal/domain"
	"warden/internal/protocol/warden"
)

// ManifestVersion is the newest manifest format understood by LoadManifest.
const ManifestVersion = 1

// Manifest is the JSON description of a catalog.
type Manifest struct {
	Version int           `json:"version"`
	Modules []ModuleEntry `json:"modules"`
}

// ModuleEntry describes one module. Key, ID and Seed are hex encoded; File
// is relative to the manifest directory.
type ModuleEntry struct {
	Name      string       `json:"name"`
	Platforms []string     `json:"platforms"`
	File      string       `json:"file"`
	Key       string       `json:"key"`
	ID        string       `json:"id,omitempty"`
	Seed      string       `json:"seed,omitempty"`
	Cipher    string       `json:"cipher,omitempty"`
	Checks    *ChecksEntry `json:"checks,omitempty"`
}

// ChecksEntry configures the periodic check of a module.
type ChecksEntry struct {
	Probe     string `json:"probe"`
	Magic     uint32 `json:"magic"`
	Randomize bool   `json:"randomize,omitempty"`
}

// LoadManifest reads a manifest and the payloads it references. Files ending
// in SealedExt are opened with passphrase first.
func LoadManifest(path, passphrase string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if strings.HasSuffix(path, SealedExt) {
		if raw, err = Open(passphrase, raw); err != nil {
			return nil, fmt.Errorf("open manifest: %w", err)
		}
	}
	return ParseManifest(raw, filepath.Dir(path))
}

// ParseManifest decodes raw and loads payload files relative to dir.
func ParseManifest(raw []byte, dir string) (*Catalog, error) {
	var mf Manifest
	if err := json.Unmarshal(raw, &mf); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if mf.Version > ManifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", mf.Version)
	}
	if len(mf.Modules) == 0 {
		return nil, fmt.Errorf("manifest lists no modules")
	}

	modules := make([]domain.Module, 0, len(mf.Modules))
	for _, e := range mf.Modules {
		m, err := e.module(dir)
		if err != nil {
			return nil, fmt.Errorf("module %q: %w", e.Name, err)
		}
		modules = append(modules, m)
	}
	return New(modules...)
}

func (e ModuleEntry) module(dir string) (domain.Module, error) {
	if e.Name == "" {
		return domain.Module{}, fmt.Errorf("name required")
	}
	if e.File == "" {
		return domain.Module{}, fmt.Errorf("file required")
	}
	payload, err := loadPayload(resolve(dir, e.File))
	if err != nil {
		return domain.Module{}, err
	}
	key, err := domain.ParseModuleKey(e.Key)
	if err != nil {
		return domain.Module{}, err
	}

	platforms := make([]domain.Platform, 0, len(e.Platforms))
	for _, p := range e.Platforms {
		platforms = append(platforms, domain.Platform(p))
	}
	m := NewModule(e.Name, payload, key, platforms...)

	if e.ID != "" {
		id, err := domain.ParseModuleID(e.ID)
		if err != nil {
			return domain.Module{}, err
		}
		if id != m.ID {
			return domain.Module{}, fmt.Errorf("%w: manifest %s, payload %s", ErrModuleIDMismatch, id, m.ID)
		}
	}
	if e.Seed != "" {
		if m.Seed, err = domain.ParseSeed(e.Seed); err != nil {
			return domain.Module{}, err
		}
	}
	if e.Cipher != "" {
		m.Suite = domain.CipherSuite(strings.ToLower(e.Cipher))
	}
	if e.Checks != nil {
		m.Checks = domain.CheckSet{Probe: e.Checks.Probe, Magic: e.Checks.Magic, RandomizeProbe: e.Checks.Randomize}
		if m.Checks.Probe == "" && !m.Checks.RandomizeProbe {
			m.Checks.Probe = warden.DefaultProbe
		}
	}
	return m, nil
}

func loadPayload(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if strings.HasSuffix(path, ArchiveExt) {
		if b, err = Unpack(b); err != nil {
			return nil, fmt.Errorf("unpack %s: %w", filepath.Base(path), err)
		}
	}
	return b, nil
}

func resolve(dir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

// WriteManifest stores mf as indented JSON at path.
func WriteManifest(path string, mf Manifest) error {
	b, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, b, 0o644)
}
