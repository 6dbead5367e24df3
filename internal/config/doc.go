// Package config holds the swiftguard runtime configuration: defaults, the
// .swiftguard YAML file, environment overrides and validation.
package config
