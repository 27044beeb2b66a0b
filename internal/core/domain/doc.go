// Package domain holds herbtrace's entities and rules: PendingRecord and its
// sync state machine, the persisted entry layout, GeoFix, ConnectivityState,
// SyncSnapshot, Draft, settings and the error taxonomy.
//
// It imports only the standard library and ulid.
package domain
