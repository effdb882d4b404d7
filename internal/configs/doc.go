// Package configs manages dotvault configuration and filesystem locations.
//
// # Configuration
//
// Configuration is stored in TOML format at
// $XDG_CONFIG_HOME/dotvault/config.toml and layered in this order, later
// layers winning for every non-empty field:
//
//  1. Built-in defaults (Default)
//  2. The config file
//  3. DOTVAULT_* environment variables
//  4. Command-line overrides
//
// Backend session tokens are never written to the config file. They come
// from the environment (DOTVAULT_BACKEND_SESSION, or BW_SESSION for
// Bitwarden) and live only as long as the process.
//
// # Paths
//
// Every file location used by dotvault is resolved once by ResolvePaths and
// passed down explicitly. Nothing else in the tree computes home-relative
// paths, so tests can point a Paths at a temporary root:
//
//   - Config dir: config.toml and the default manifest (items.yaml)
//   - State dir: checksums.json, audit.jsonl, dotvault.log
//   - Backup dir: timestamped copies taken before a pull overwrites a file
package configs
