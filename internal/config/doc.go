// Package config handles configuration loading for sibyl-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults for the engine agent
// settings (model, agent name, app name, instruction).
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from SIBYL_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/sibyl/gateway.yaml
//  3. ~/.config/sibyl/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	engine:
//	  api_key: "${SIBYL_ENGINE_API_KEY}"
//
// Unset variables expand to the empty string.
//
// # Sections
//
//   - server: HTTP listen address
//   - engine: managed agent engine endpoint, credentials, and agent settings
//   - tailscale: optional tsnet listener (hostname, funnel, https)
//   - database: SQLite query log path
//   - auth: optional JWT secret for bearer auth on query endpoints
//   - logging: level and format (text/json)
package config
