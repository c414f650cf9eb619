package layout

import (
	"fmt"
	"io"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"
)

// Manifest describes a resolved layout for downstream tooling.
type Manifest struct {
	Arch        string           `yaml:"arch"`
	Entry       string           `yaml:"entry"`
	Fingerprint string           `yaml:"fingerprint"`
	Regions     []ManifestRegion `yaml:"regions"`
	Reclaimable []ManifestExtent `yaml:"reclaimable,omitempty"`
	Discarded   []string         `yaml:"discarded,omitempty"`
	Orphans     []string         `yaml:"orphans,omitempty"`
}

type ManifestRegion struct {
	Role     string `yaml:"role"`
	Name     string `yaml:"name"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	StartSym string `yaml:"start_symbol"`
	EndSym   string `yaml:"end_symbol"`
	Size     string `yaml:"size"`
	Loaded   bool   `yaml:"loaded"`
	Retained bool   `yaml:"retained"`
}

type ManifestExtent struct {
	Role  string `yaml:"role"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Fingerprint identifies a linker script so that a manifest can be matched
// with the script it was produced with.
func Fingerprint(script []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(script))
}

func NewManifest(l *Layout, script []byte) *Manifest {
	m := &Manifest{
		Arch:        l.Arch.String(),
		Entry:       l.Entry,
		Fingerprint: Fingerprint(script),
	}
	for _, p := range l.Placements {
		s := p.Symbols()
		m.Regions = append(m.Regions, ManifestRegion{
			Role:     string(p.Role),
			Name:     p.Name,
			Start:    hexAddr(p.Start),
			End:      hexAddr(p.End),
			StartSym: s.Start,
			EndSym:   s.End,
			Size:     humanize.IBytes(p.Size()),
			Loaded:   p.Loaded(),
			Retained: p.Retained(),
		})
	}
	for _, e := range l.Reclaimable() {
		m.Reclaimable = append(m.Reclaimable, ManifestExtent{
			Role:  string(e.Role),
			Start: hexAddr(e.Start),
			End:   hexAddr(e.End),
		})
	}
	for _, in := range l.Discarded {
		m.Discarded = append(m.Discarded, in.String())
	}
	for _, in := range l.Orphans {
		m.Orphans = append(m.Orphans, in.String())
	}
	return m
}

func hexAddr(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

func (m *Manifest) EncodeYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}

func DecodeManifestYAML(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// MarshalProto encodes the manifest as a google.protobuf.Struct.
func (m *Manifest) MarshalProto() ([]byte, error) {
	v, err := m.toValue()
	if err != nil {
		return nil, err
	}
	s, err := structpb.NewStruct(v)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func UnmarshalManifestProto(b []byte) (*Manifest, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(s.AsMap())
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(out, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// toValue converts the manifest into the generic form accepted by structpb,
// keyed by the yaml field names.
func (m *Manifest) toValue() (map[string]any, error) {
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, err
	}
	var v map[string]any
	if err := yaml.Unmarshal(out, &v); err != nil {
		return nil, err
	}
	return v, nil
}
