package domain

// ConnectivityState is the debounced network reachability.
type ConnectivityState string

// Connectivity states.
const (
	Online  ConnectivityState = "online"
	Offline ConnectivityState = "offline"
)

// IsOnline returns true for Online.
func (c ConnectivityState) IsOnline() bool {
	return c == Online
}

// String returns the string representation.
func (c ConnectivityState) String() string {
	return string(c)
}
