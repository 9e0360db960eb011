package config

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type SessionStoreConfig interface {
	GetSessionStore() string
	GetRedisAddr() string
	GetRedisUsername() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
}

type SessionStore struct{}

var _ SessionStoreConfig = SessionStore{}

func (SessionStore) GetSessionStore() string {
	return GetEnv("SESSION_STORE", SessionStoreMemory)
}

func (SessionStore) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (SessionStore) GetRedisUsername() string {
	return GetEnv("REDIS_USERNAME", "")
}

func (SessionStore) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (SessionStore) GetRedisDB() int {
	return GetInt("REDIS_DB", 0)
}

func (SessionStore) GetRedisKeyPrefix() string {
	return GetEnv("REDIS_KEY_PREFIX", "login:session:")
}
