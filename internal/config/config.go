package config

// Config holds preview-server configuration
type Config struct {
	// Server settings
	Host string
	Port string

	// Snapshot folder settings
	SnapshotsPath string

	// Conversion settings
	ConvertIframes bool
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Host:          "localhost",
		Port:          "8080",
		SnapshotsPath: "./snapshots", // Default to ./snapshots directory
	}
}

// Address returns the full server address
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}

// URL returns the full server URL
func (c *Config) URL() string {
	return "http://" + c.Address()
}
