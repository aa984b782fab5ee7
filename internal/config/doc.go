// Package config loads, normalizes, and validates postforge configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY and WORDPRESS_PASSWORD. The Config type centralizes every knob
// the daemon and CLI need so the queue source, CMS credentials, archive
// backend and model settings are discovered in one pass.
package config
