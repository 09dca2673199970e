package partition

import (
	"testing"

	"github.com/socboot/bup-update/internal/socmodel"
)

func TestRedundantNameG2G3(t *testing.T) {
	if got := RedundantName(socmodel.G2, socmodel.EMMC, "mb1"); got != "mb1_b" {
		t.Errorf("G2 mb1 redundant name = %q, want mb1_b", got)
	}
	if got := RedundantName(socmodel.G3, socmodel.SPIFlash, "mb2"); got != "mb2_b" {
		t.Errorf("G3 mb2 redundant name = %q, want mb2_b", got)
	}
}

func TestRedundantNameG1(t *testing.T) {
	cases := []struct {
		platform socmodel.Platform
		base     string
		want     string
	}{
		{socmodel.EMMC, "NVC", "NVC-1"},
		{socmodel.EMMC, "VER", "VER_b"},
		{socmodel.EMMC, "PT", "PT-1"},
		{socmodel.SPIFlash, "NVC", "NVC_R"},
		{socmodel.SPIFlash, "VER", "VER_b"},
		{socmodel.SPIFlash, "PT", "PT-1"},
	}
	for _, c := range cases {
		if got := RedundantName(socmodel.G1, c.platform, c.base); got != c.want {
			t.Errorf("RedundantName(G1, %v, %q) = %q, want %q", c.platform, c.base, got, c.want)
		}
	}
}
