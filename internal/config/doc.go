// Package config loads the process configuration from the environment.
//
// Configuration is read exactly once at startup. Missing required values
// are reported as an explicit error so the process fails loudly instead of
// starting in a half-configured state.
package config
