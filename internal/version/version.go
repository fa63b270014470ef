// Package version provides version information for the rpc4next CLI.
package version

// Version is set via ldflags during build.
var Version = "dev"

// GeneratorSchemaVersion is bumped when the layout of the generated
// declaration changes (key prefixes, helper type names) so stale output can
// be detected.
const GeneratorSchemaVersion = 1

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}

// GetGeneratorSchemaVersion returns the current generator schema version.
func GetGeneratorSchemaVersion() int {
	return GeneratorSchemaVersion
}
