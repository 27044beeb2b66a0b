// Package platform adapts host capabilities to the core's driven ports.
//
// Adapters:
//   - TCPProbe: ReachabilityProbe that dials the remote authority
//   - GPSDProvider: LocationProvider reading fixes from a gpsd daemon
//   - StaticProvider: LocationProvider returning a configured coordinate
//   - UnsupportedProvider: LocationProvider for hosts without location
package platform
