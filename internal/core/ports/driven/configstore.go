package driven

// ConfigStore is flat key/value access to config.toml. Keys are dotted
// ("sync.max_attempts"); typed getters return the zero value when a key is
// missing or holds another type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string

	// GetInt accepts any integral number, including whole floats.
	GetInt(key string) int
	GetBool(key string) bool

	// GetFloat widens integers.
	GetFloat(key string) float64

	// Keys returns every stored key, sorted.
	Keys() []string

	// Set persists immediately.
	Set(key string, value any) error

	// Path is where the configuration lives, for display only.
	Path() string
}
