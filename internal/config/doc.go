// Package config handles configuration loading and resolution for autograde.
//
// # Configuration Precedence
//
// Values are resolved in the following order (highest to lowest priority):
//
//  1. CLI flags (--results, --debug, --theme, ...)
//  2. Environment variables (SUBMISSION_LIMIT, SCHOOL_TIME_ZONE, AUTOGRADE_*, NO_COLOR)
//  3. YAML config file (.autograde.yaml in the working directory, then
//     ~/.config/autograde/.autograde.yaml)
//  4. Hardcoded defaults
//
// # Environment Variables
//
//   - SUBMISSION_LIMIT: maximum counted submissions; negative means unlimited
//   - SCHOOL_TIME_ZONE: IANA zone used for submission timestamps
//   - AUTOGRADE_BIN: autograde binary used for child runs
//   - AUTOGRADE_METADATA: path of submission_metadata.json
//   - AUTOGRADE_DEBUG: any true value enables debug logging
//   - NO_COLOR: disables colors in rendered output
package config
