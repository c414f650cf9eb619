package layout

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/q0jt/go-bootlayout/layout/config/arch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manifestLayout(t *testing.T) (*Layout, []byte) {
	t.Helper()
	reg := newRegistry(t, arch.RISCV64)
	d := NewDescriptor().StartText().Text().BSS(16).StartArena(4096, 0x1000).InitStack(16, 0x1000)

	var script bytes.Buffer
	require.NoError(t, d.WriteScript(&script, reg, "kentry"))

	l, err := d.Link(reg, []InputSection{
		{Name: ".text.start", Object: "start.o", Size: 0x40, Symbols: []string{"kentry"}},
		{Name: ".text.unused", Object: "main.o", Size: 0x10},
	}, "kentry", true)
	require.NoError(t, err)
	return l, script.Bytes()
}

func TestNewManifest(t *testing.T) {
	l, script := manifestLayout(t)
	m := NewManifest(l, script)

	assert.Equal(t, "riscv64", m.Arch)
	assert.Equal(t, "kentry", m.Entry)
	assert.Equal(t, Fingerprint(script), m.Fingerprint)
	assert.Len(t, m.Fingerprint, 16)
	assert.Equal(t, []string{"main.o(.text.unused)"}, m.Discarded)

	require.Len(t, m.Regions, 5)
	assert.Equal(t, ManifestRegion{
		Role:     "start-text",
		Name:     ".text.start",
		Start:    "0x80000000",
		End:      "0x80000040",
		StartSym: "__text_start",
		EndSym:   "__etext_start",
		Size:     "64 B",
		Loaded:   true,
		Retained: true,
	}, m.Regions[0])
	assert.Equal(t, ManifestRegion{
		Role:     "init-stack",
		Name:     ".stack",
		Start:    "0x80002000",
		End:      "0x80003000",
		StartSym: "__stack",
		EndSym:   "__estack",
		Size:     "4.0 KiB",
	}, m.Regions[4])

	assert.Equal(t, []ManifestExtent{
		{Role: "start-text", Start: "0x80000000", End: "0x80000040"},
		{Role: "start-arena", Start: "0x80001000", End: "0x80002000"},
	}, m.Reclaimable)
}

func TestManifestYAML(t *testing.T) {
	l, script := manifestLayout(t)
	m := NewManifest(l, script)

	var buf bytes.Buffer
	require.NoError(t, m.EncodeYAML(&buf))
	assert.Contains(t, buf.String(), "start_symbol: __text_start\n")

	decoded, err := DecodeManifestYAML(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(m, decoded); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestManifestProto(t *testing.T) {
	l, script := manifestLayout(t)
	m := NewManifest(l, script)

	b, err := m.MarshalProto()
	require.NoError(t, err)

	decoded, err := UnmarshalManifestProto(b)
	require.NoError(t, err)
	if diff := cmp.Diff(m, decoded); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint([]byte("SECTIONS {}")), Fingerprint([]byte("SECTIONS {}")))
	assert.NotEqual(t, Fingerprint([]byte("SECTIONS {}")), Fingerprint([]byte("SECTIONS { }")))
}
