package config

import "time"

const (
	// DefaultProjectPath is the default project path
	DefaultProjectPath = "."
	// DefaultTestPath is the default test path
	DefaultTestPath = "."
	// DefaultPattern matches test scripts relative to the test path
	DefaultPattern = "**/*_tp.go"
	// DefaultOutputJSONFile is the default output JSON file name
	DefaultOutputJSONFile = "test-results.json"
	// DefaultOutputJSONDir is the default output directory
	DefaultOutputJSONDir = "storage"
	// DefaultDebounce is the quiet period before a watch rerun
	DefaultDebounce = 300 * time.Millisecond
	// FileName is the optional project configuration file
	FileName = ".testpass.yml"
	// EnvFileName is the optional dotenv file in the project root
	EnvFileName = ".env"
)

// Environment variables overriding the file configuration.
const (
	EnvResultsDSN = "TESTPASS_RESULTS_DSN"
	EnvPattern    = "TESTPASS_PATTERN"
	EnvDebounce   = "TESTPASS_DEBOUNCE"
)

// DefaultPathsToIgnore are the default directories to ignore when scanning for tests
var DefaultPathsToIgnore = []string{
	"vendor",
	"node_modules",
	".git",
	"testdata",
}
