// Package config loads and merges sqlgate configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (SQLGATE_*, plus DIFY_API_BASE, DIFY_API_KEY,
//     GITHUB_ACTOR, OPENAI_API_KEY and OLLAMA_HOST for the generative reviewer)
//  3. Config file (--config, or $XDG_CONFIG_HOME/sqlgate/config.yaml)
//  4. Built-in defaults
//
// Use [Load] once at process start and pass the resulting [Config] value to
// each component. Nothing else in sqlgate reads the environment.
package config
