package redis

// Config holds Redis connection settings for the account store.
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379/0).
	URL string
	// PoolSize is the maximum number of socket connections.
	PoolSize int
	// KeyPrefix namespaces every key written by the store.
	KeyPrefix string
}

// DefaultConfig returns defaults for a local Redis.
func DefaultConfig() Config {
	return Config{
		URL:       "redis://localhost:6379/0",
		PoolSize:  10,
		KeyPrefix: "chessrelay",
	}
}
