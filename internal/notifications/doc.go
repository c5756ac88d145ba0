// Package notifications delivers capture and conversion events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Per-event toggles let a team silence capture chatter while keeping risk
// escalations and errors.
package notifications
