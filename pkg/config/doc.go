// Package config loads the drenv configuration file.
//
// The file is validated against a JSON schema generated from the [Config]
// type before it is decoded, so errors point at the offending YAML path.
package config
