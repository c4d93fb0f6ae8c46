// Package config loads, normalizes, and validates shuttle configuration.
package config
