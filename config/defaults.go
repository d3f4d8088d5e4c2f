package config

import (
	"github.com/spf13/viper"
)

// DefaultFormatVersion is the metadata revision assumed when none is
// configured. It sits inside the bundled snapshot adapter's supported range.
const DefaultFormatVersion = "29.1.0"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Metadata defaults
	v.SetDefault("metadata.format_version", DefaultFormatVersion)

	// Output defaults
	v.SetDefault("output.dir", "generated")

	// Crate defaults
	v.SetDefault("crate.name", "generated-types")

	// Exclusion defaults: nothing excluded
	v.SetDefault("exclude.types", []string{})

	// Logging defaults
	v.SetDefault("logging.json", false)
	v.SetDefault("logging.verbose", false)
}
