package cmdconf

import (
	"flag"
	"fmt"
	"os"
	"path"

	"import.name/confi"
)

var home = os.Getenv("HOME")

func JoinHome(dir string) string {
	if dir == "" {
		return ""
	}
	if path.IsAbs(dir) {
		return dir
	}
	if home != "" {
		return path.Join(home, dir)
	}
	return ""
}

// Parse command-line flags into the configuration object.  The default
// filename patterns can be absolute, or relative to home directory.
// Arguments after the flags are returned.
func Parse(config any, flags *flag.FlagSet, args []string, defaults ...string) []string {
	var absDefaults []string
	for _, p := range defaults {
		p = JoinHome(p)
		if p != "" {
			absDefaults = append(absDefaults, p)
		}
	}

	b := confi.NewBuffer(absDefaults...)

	flags.Var(b.FileReplacer(), "F", "replace previous configuration with this file")
	flags.Var(b.FileReader(), "f", "read a configuration file")
	flags.Var(b.DirReader("*.toml"), "d", "read configuration files from a directory")
	flags.Var(b.Assigner(), "o", "set a configuration option (path.to.key=value)")
	if err := flags.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", flags.Name(), err)
		os.Exit(2)
	}

	if err := b.Flush(config, false); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", flags.Name(), err)
		os.Exit(2)
	}
	return flags.Args()
}
