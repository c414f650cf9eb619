// Command bootlayout resolves the boot image section layout of an
// architecture and writes the linker script, the startup assembly header
// and a layout manifest.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/dustin/go-humanize"
	"github.com/google/renameio/v2"
	"github.com/q0jt/go-bootlayout/asm"
	"github.com/q0jt/go-bootlayout/internal/cmdconf"
	"github.com/q0jt/go-bootlayout/internal/logging"
	"github.com/q0jt/go-bootlayout/layout"
	"github.com/q0jt/go-bootlayout/layout/config/arch"
	"github.com/q0jt/go-bootlayout/layout/config/role"
	"import.name/confi"
	"import.name/pan"

	. "import.name/pan/mustcheck"
)

var Defaults = []string{
	"/etc/bootlayout.toml",
	".config/bootlayout.toml", // Relative to home directory.
}

type Config struct {
	Arch   string
	Layout string // pkl module
	Entry  string
	GC     bool

	// Used when the layout declares no regions.
	StackSize string
	ArenaSize string

	// Blob placed in the devicetree region.
	DTB string

	Output struct {
		Script   string
		Header   string
		Manifest string
		Proto    string
		Hex      string
		Binary   string
	}

	Log struct {
		Journal bool
		Verbose bool
	}
}

var c = new(Config)

func main() {
	log.SetFlags(0)

	defer func() {
		pan.Fatal(recover())
	}()

	c.Arch = arch.Generic.String()
	c.GC = true
	c.StackSize = "16KB"
	c.ArenaSize = "64KB"
	c.Output.Script = "bootlayout.lds"
	c.Output.Header = "section_names.h"
	c.Output.Manifest = "bootlayout.yaml"

	flag.Usage = confi.FlagUsage(nil, c)
	objects := cmdconf.Parse(c, flag.CommandLine, os.Args[1:], Defaults...)

	logger, err := logging.Init(c.Log.Journal, c.Log.Verbose)
	if err != nil {
		logger.Warn("journal unavailable", "error", err)
	}

	Check(run(context.Background(), logger, objects))
}

func run(ctx context.Context, logger *slog.Logger, objects []string) error {
	var a arch.Arch
	if err := a.UnmarshalBinary([]byte(c.Arch)); err != nil {
		return err
	}

	conf := Must(layout.LoadConfig(ctx, c.Layout))
	entry := conf.Entry
	if c.Entry != "" {
		entry = c.Entry
	}

	reg := Must(layout.RegistryFor(conf, a))
	desc := Must(layout.ConfigDescriptor(conf, reg, parseSize(c.StackSize), parseSize(c.ArenaSize)))

	var inputs []layout.InputSection
	for _, name := range objects {
		inputs = append(inputs, Must(layout.ReadObjectFile(name))...)
	}
	if c.DTB != "" {
		inputs = append(inputs, Must(dtbInput(reg, c.DTB)))
	}

	script := new(bytes.Buffer)
	Check(desc.WriteScript(script, reg, entry))

	// Without objects there is nothing to collect from the entry symbol.
	l := Must(desc.Link(reg, inputs, entry, c.GC && len(objects) > 0))

	for _, p := range l.Placements {
		logger.Info("region",
			"name", p.Name,
			"start", fmt.Sprintf("%#x", p.Start),
			"end", fmt.Sprintf("%#x", p.End),
			"size", humanize.IBytes(p.Size()),
			"inputs", len(p.Inputs))
	}
	for _, in := range l.Discarded {
		logger.Debug("discarded", "section", in.String(), "size", humanize.IBytes(in.Size))
	}
	for _, in := range l.Orphans {
		logger.Warn("orphan section", "section", in.String())
	}

	Check(renameio.WriteFile(c.Output.Script, script.Bytes(), 0o644))

	header := new(bytes.Buffer)
	Check(asm.WriteHeader(header, reg))
	Check(renameio.WriteFile(c.Output.Header, header.Bytes(), 0o644))

	m := layout.NewManifest(l, script.Bytes())
	if c.Output.Manifest != "" {
		b := new(bytes.Buffer)
		Check(m.EncodeYAML(b))
		Check(renameio.WriteFile(c.Output.Manifest, b.Bytes(), 0o644))
	}
	if c.Output.Proto != "" {
		Check(renameio.WriteFile(c.Output.Proto, Must(m.MarshalProto()), 0o644))
	}

	if c.Output.Hex != "" || c.Output.Binary != "" {
		image := new(bytes.Buffer)
		Check(l.WriteIntelHex(image))
		Check(l.VerifyImage(bytes.NewReader(image.Bytes())))
		if c.Output.Hex != "" {
			Check(renameio.WriteFile(c.Output.Hex, image.Bytes(), 0o644))
		}
		if c.Output.Binary != "" {
			start := l.Placements[0].Start
			if start > 0xffffffff {
				return fmt.Errorf("%w: image base %#x", layout.ErrImageRange, start)
			}
			Check(renameio.WriteFile(c.Output.Binary, Must(layout.HexToBinary(image.Bytes(), uint32(start))), 0o644))
		}
	}

	logger.Info("layout written",
		"arch", a,
		"end", fmt.Sprintf("%#x", l.End()),
		"fingerprint", m.Fingerprint)
	return nil
}

func parseSize(s string) uint64 {
	if s == "" {
		return 0
	}
	size := Must(datasize.ParseString(s))
	return size.Bytes()
}

func dtbInput(reg *layout.Registry, filename string) (layout.InputSection, error) {
	name, err := reg.Name(role.Dtb)
	if err != nil {
		return layout.InputSection{}, err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return layout.InputSection{}, err
	}
	// Devicetree blobs are 8-byte aligned.
	return layout.InputSection{
		Name:   name,
		Object: filename,
		Size:   uint64(len(data)),
		Align:  8,
		Data:   data,
	}, nil
}
