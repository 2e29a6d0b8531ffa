// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from the --config path when given, otherwise from
// $XDG_CONFIG_HOME/graphweave/config.cue (~/Library/Application Support on macOS,
// %APPDATA% on Windows), then ./config.cue. Missing files fall back to defaults.
// Every key can be overridden from the environment with the GRAPHWEAVE_ prefix
// (GRAPHWEAVE_SERVER_ADDRESS, GRAPHWEAVE_RESOLVER_MAX_DEPTH, ...); a .env file
// in the working directory is loaded first.
//
// Files are validated against the embedded CUE schema (config_schema.cue) before
// they reach Viper, so type errors are reported with the offending CUE path.
package config
