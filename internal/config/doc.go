// Package config loads the YAML application configuration with environment
// variable expansion and per-section validation. Unset values fall back to
// working local defaults, so a config file only needs the knobs it changes.
package config
