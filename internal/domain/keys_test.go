package domain_test

import (
	"testing"

	"warden/internal/domain"
)

func TestParseSeed(t *testing.T) {
	const hexSeed = "4D808D2C77D905C41A6380EC08586AFE"
	seed, err := domain.ParseSeed(hexSeed)
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	if seed.String() != hexSeed || seed[0] != 0x4D || seed[15] != 0xFE {
		t.Fatalf("decoded %s", seed)
	}
	if domain.MustSeed(hexSeed) != seed {
		t.Fatal("MustSeed disagrees with ParseSeed")
	}
}

func TestParseFixed_Rejects(t *testing.T) {
	if _, err := domain.ParseSeed("4D80"); err == nil {
		t.Fatal("short seed accepted")
	}
	if _, err := domain.ParseModuleKey("zz" + "00112233445566778899AABBCCDDEE"); err == nil {
		t.Fatal("non-hex key accepted")
	}
	id, err := domain.ParseModuleID("0DBBF209A27B1E279A9FEC5C168A15F7")
	if err != nil || id.String() != "0DBBF209A27B1E279A9FEC5C168A15F7" {
		t.Fatalf("ParseModuleID: %s %v", id, err)
	}
}
