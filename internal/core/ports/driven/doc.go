// Package driven holds the interfaces the core calls out through: the
// durable record queue and draft table, scheduler state, config.toml, the
// remote authority, reachability and location probes, and the clock.
//
// Adapters under internal/adapters/driven implement them; services only
// see these interfaces and the domain types they carry.
package driven
