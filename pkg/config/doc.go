/*
Package config resolves the process configuration for cmd/sdbcore from
three layers, in ascending priority: built-in defaults, an optional
--config YAML file, and explicit command-line flags.

	cfg := Default()          // lowest priority
	cfg = Load(path)          // overlays a YAML file onto the defaults
	cfg = FromFlags(cmd)      // overlays any flag the caller set

A flag only overrides the file (or defaults) if the caller actually
set it — BindFlags registers every flag defaulted from Default(), and
FromFlags checks pflag's Changed() before applying, so an unset flag
never clobbers a value that came from --config.
*/
package config
