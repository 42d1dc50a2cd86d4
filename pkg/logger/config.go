package logger

// Config holds the logger configuration.
type Config struct {
	// Level sets the minimum log level (debug, info, warn, error)
	Level string

	// Environment determines output format (development = console, production = JSON)
	Environment string

	// EnableConsole enables console output
	EnableConsole bool

	// EnableFile enables the JSON-lines file sink
	EnableFile bool

	// FilePath is the path to the log file
	FilePath string

	// MaxSizeBytes rotates the log file once it grows past this size
	MaxSizeBytes int64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		Environment:   "development",
		EnableConsole: true,
		EnableFile:    true,
		FilePath:      "./data/client.log",
		MaxSizeBytes:  10 << 20, // 10 MB
	}
}
