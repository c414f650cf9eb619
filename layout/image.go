package layout

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/marcinbor85/gohex"
)

// WriteIntelHex writes the contents of the loaded regions at their resolved
// addresses. The start address record points at start text. Input contents
// are written as given; relocations are not applied.
func (l *Layout) WriteIntelHex(w io.Writer) error {
	mem := gohex.NewMemory()
	for _, p := range l.Placements {
		if !p.Loaded() {
			continue
		}
		if p.End > math.MaxUint32 {
			return fmt.Errorf("%w: %s ends at %#x", ErrImageRange, p.Name, p.End)
		}
		for _, in := range p.Inputs {
			if len(in.Data) == 0 {
				continue
			}
			if err := mem.AddBinary(uint32(in.Addr), in.Data); err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
		}
	}
	if len(l.Placements) > 0 && l.Placements[0].Start <= math.MaxUint32 {
		mem.SetStartAddress(uint32(l.Placements[0].Start))
	}
	return mem.DumpIntelHex(w, 16)
}

// Segment is a contiguous run of image data.
type Segment struct {
	Addr uint64
	Data []byte
}

func ReadIntelHex(r io.Reader) ([]Segment, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, err
	}
	var segs []Segment
	for _, segment := range mem.GetDataSegments() {
		segs = append(segs, Segment{Addr: uint64(segment.Address), Data: segment.Data})
	}
	return segs, nil
}

// HexToBinary flattens an Intel HEX image into a binary starting at base.
// Gaps are filled with 0xff.
func HexToBinary(b []byte, base uint32) ([]byte, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	var size uint32
	for _, segment := range mem.GetDataSegments() {
		if segment.Address < base {
			return nil, fmt.Errorf("%w: segment at %#x below %#x", ErrImageRange, segment.Address, base)
		}
		size = max(size, segment.Address+uint32(len(segment.Data))-base)
	}
	return mem.ToBinary(base, size, 0xff), nil
}

// VerifyImage checks that every data segment of an Intel HEX image lies
// within a loaded region of the layout.
func (l *Layout) VerifyImage(r io.Reader) error {
	segs, err := ReadIntelHex(r)
	if err != nil {
		return err
	}
	for _, seg := range segs {
		end := seg.Addr + uint64(len(seg.Data))
		if !l.inLoaded(seg.Addr, end) {
			return fmt.Errorf("%w: %#x-%#x", ErrImageRange, seg.Addr, end)
		}
	}
	return nil
}

// inLoaded reports whether [start, end) is covered by loaded regions. A
// segment may span adjacent regions.
func (l *Layout) inLoaded(start, end uint64) bool {
	for start < end {
		var next uint64
		for i := range l.Placements {
			p := &l.Placements[i]
			if p.Loaded() && p.Overlaps(start, start+1) {
				next = p.End
				break
			}
		}
		if next == 0 {
			return false
		}
		start = next
	}
	return true
}
