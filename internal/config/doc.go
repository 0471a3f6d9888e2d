// Package config loads, normalizes, and validates vidbunch configuration data.
//
// It supplies defaults taken from the reference training job (224px frames,
// 4 segments of 4 frames, batches of 32), expands user paths including tilde
// shortcuts, and reads TOML files. Always obtain settings through this package
// so downstream code receives sanitized paths and clear validation errors
// wrapping vberr.ErrConfiguration.
package config
