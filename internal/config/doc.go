// Package config loads and validates the registrypulse YAML configuration.
// Secrets (API keys, tokens, passwords, webhook URLs) are never stored in the
// file itself — the config names environment variables and the accessors
// resolve them at use time. Watch provides fsnotify-based hot reload.
package config
