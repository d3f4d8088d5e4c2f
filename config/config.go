package config

// Config represents the core typeforge configuration
type Config struct {
	Metadata MetadataConfig `mapstructure:"metadata"`
	Output   OutputConfig   `mapstructure:"output"`
	Crate    CrateConfig    `mapstructure:"crate"`
	Exclude  ExcludeConfig  `mapstructure:"exclude"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// MetadataConfig selects how the metadata source is decoded
type MetadataConfig struct {
	FormatVersion string `mapstructure:"format_version"` // binary-format revision, picks the adapter
}

// OutputConfig configures artifact placement
type OutputConfig struct {
	Dir string `mapstructure:"dir"` // root output directory, one subdirectory per target
}

// CrateConfig configures the source-crate target's manifest
type CrateConfig struct {
	Name string `mapstructure:"name"` // Cargo package name
}

// ExcludeConfig lists types rendered as opaque placeholders
type ExcludeConfig struct {
	Types []string `mapstructure:"types"` // fully-qualified original names
}

// LoggingConfig configures diagnostic output
type LoggingConfig struct {
	JSON    bool `mapstructure:"json"`    // structured JSON instead of console encoding
	Verbose bool `mapstructure:"verbose"` // debug-level logging
}
