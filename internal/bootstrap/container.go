package bootstrap

import (
	"context"
	"log"

	"ai-video-companion/internal/config"
	"ai-video-companion/internal/controller"
	"ai-video-companion/internal/handler"
	"ai-video-companion/internal/pkg/logger"
	"ai-video-companion/internal/repository/durable"
	"ai-video-companion/internal/repository/memory"
	"ai-video-companion/internal/service"
	"ai-video-companion/internal/websocket"
	"ai-video-companion/pkg/events"
	"ai-video-companion/pkg/producer/httpapi"
	"ai-video-companion/pkg/video/state"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	VideoController controller.IVideoController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	StreamHandler *handler.StreamHandler
	WebSocketHub  *websocket.Hub

	Logger *logger.ZapLogger

	closers []func() error
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{BlockPublishUntilSubscriberAck: true},
		watermillLogger,
	)
	c.closers = append(c.closers, pubSub.Close)

	// 3. Storage
	backend := newDurableBackend(cfg.Durable, c)
	tier := durable.NewTier(backend, cfg.Durable.SessionTTL, sysLogger)
	cache := memory.NewResourceCache(tier)

	// 4. State, wired to the bus
	stateManager := state.NewManager(sysLogger)
	publisherService := service.NewPublisherService(events.TopicVideoState, pubSub, sysLogger)
	stateManager.OnChange(func(change state.Change) {
		// Publish already logs failures; state changes never wait on subscribers.
		_ = publisherService.Publish(events.FromStateChange(change))
	})

	// 5. Remote collaborators
	client := httpapi.NewClient(
		cfg.Producer.APIBaseURL,
		cfg.Producer.VoiceHighlightURL,
		cfg.App.UserID,
		cfg.Producer.Timeout,
	)

	// 6. Services
	videoService := service.NewVideoService(client, cache, stateManager, sysLogger)
	taskService := service.NewTaskService(client, cache, stateManager, sysLogger)

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	wsHub := websocket.NewHub(wsLogger)
	go wsHub.Run()
	c.closers = append(c.closers, func() error {
		wsHub.Stop()
		return nil
	})

	c.ConsumerService = service.NewConsumerService(pubSub, events.TopicVideoState, wsHub, wsLogger)
	c.StreamHandler = handler.NewStreamHandler(wsHub, wsLogger)
	c.WebSocketHub = wsHub

	// 7. Controllers
	c.VideoController = controller.NewVideoController(videoService, taskService, sysLogger)

	log.Printf("[INFO] Container ready (durable backend: %s, producer: %s)", cfg.Durable.Backend, cfg.Producer.APIBaseURL)
	return c
}

// Close releases background resources in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Printf("[WARN] Shutdown step failed: %v", err)
		}
	}
	_ = c.Logger.Sync()
}

// newDurableBackend picks the session store. Any failure falls back to the
// in-memory backend so the app still starts.
func newDurableBackend(cfg config.DurableConfig, c *Container) durable.Backend {
	switch cfg.Backend {
	case "memory":
		return durable.NewMemoryBackend()

	case "redis":
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v. Sessions will not survive restarts", err)
			_ = rdb.Close()
			return durable.NewMemoryBackend()
		}
		c.closers = append(c.closers, rdb.Close)
		return durable.NewRedisBackend(rdb)

	default:
		fb, err := durable.NewFileBackend(cfg.Dir)
		if err != nil {
			log.Printf("[WARN] Failed to prepare session dir %s: %v. Using memory", cfg.Dir, err)
			return durable.NewMemoryBackend()
		}
		return fb
	}
}
