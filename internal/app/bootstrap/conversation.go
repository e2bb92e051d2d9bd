package bootstrap

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/spa-line-booking/internal/config"
	"github.com/wolfman30/spa-line-booking/internal/conversation"
	"github.com/wolfman30/spa-line-booking/pkg/logging"
)

// BuildSessionStore picks the session backend named by SESSION_BACKEND. The
// second return value is the in-process store when one was chosen, so the
// caller can schedule its sweeper.
func BuildSessionStore(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (conversation.Store, *conversation.MemoryStore, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.SessionBackend {
	case "redis":
		if redisClient == nil {
			return nil, nil, fmt.Errorf("bootstrap: redis session backend selected but redis is unavailable")
		}
		logger.Info("using redis conversation sessions", "ttl", cfg.SessionTTL)
		return conversation.NewRedisStore(redisClient, cfg.SessionTTL), nil, nil
	case "", "memory":
		logger.Info("using in-memory conversation sessions", "ttl", cfg.SessionTTL)
		mem := conversation.NewMemoryStore(conversation.WithTTL(cfg.SessionTTL))
		return mem, mem, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown session backend %q", cfg.SessionBackend)
	}
}

// BuildLocker returns a Redis lock when sessions are shared across replicas and
// an in-process lock otherwise.
func BuildLocker(cfg *appconfig.Config, redisClient *redis.Client) conversation.Locker {
	if cfg != nil && cfg.SessionBackend == "redis" && redisClient != nil {
		return conversation.NewRedisLocker(redisClient, cfg.DispatchTimeout)
	}
	return conversation.NewKeyedMutex()
}
