// Package notifications delivers batch events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when notifications are disabled. Events
// cover batch completion, per-item failures and adapter outages so the
// workflow can emit consistent messages without duplicating HTTP glue.
package notifications
