package cli

import "testpass/internal/config"

// Flags holds command-line flags
type Flags struct {
	ProjectPath string
	TestPath    string
	NameFilter  string
	Pattern     string
	Watch       bool
	Verbose     bool
	Quiet       bool
	Debug       bool
	TestCases   bool
	OpenFaills  bool
}

// ToConfigFlags converts CLI flags to config flags. args are the explicit
// test paths given on the command line.
func (f *Flags) ToConfigFlags(args []string) config.Flags {
	return config.Flags{
		ProjectPath: f.ProjectPath,
		TestPath:    f.TestPath,
		NameFilter:  f.NameFilter,
		Pattern:     f.Pattern,
		Paths:       args,
		Watch:       f.Watch,
		Verbose:     f.Verbose,
		Quiet:       f.Quiet,
		Debug:       f.Debug,
		TestCases:   f.TestCases,
		OpenFaills:  f.OpenFaills,
	}
}
