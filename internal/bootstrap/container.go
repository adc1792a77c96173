package bootstrap

import (
	"context"
	"log"
	"time"

	"realtime-chat-be/internal/config"
	"realtime-chat-be/internal/controller"
	"realtime-chat-be/internal/handler"
	"realtime-chat-be/internal/pkg/logger"
	"realtime-chat-be/internal/ratelimit"
	"realtime-chat-be/internal/repository/unitofwork"
	"realtime-chat-be/internal/service"
	"realtime-chat-be/internal/websocket"
	pktNats "realtime-chat-be/pkg/nats"
	"realtime-chat-be/pkg/presence"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController controller.IAuthController
	ChatController controller.IChatController

	// WebSocket gateway
	GatewayHandler *handler.GatewayHandler
	WebSocketHub   *websocket.Hub

	// Background services (exposed for main.go to run)
	PresenceService service.IPresenceService
	FeedService     *service.FeedService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. In-process presence bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)

	// 3. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}
	presenceStore := presence.NewStore(rdb)

	// 4. Services
	tokenService := service.NewTokenService(
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.AccessTokenTTLMins)*time.Minute,
	)
	authService := service.NewAuthService(uowFactory, tokenService)
	chatService := service.NewChatService(uowFactory, natsPub, sysLogger)
	messageService := service.NewMessageService(uowFactory, natsPub, sysLogger)

	publisherService := service.NewPublisherService(service.PresenceTopic, pubSub)
	presenceService := service.NewPresenceService(
		pubSub,
		service.PresenceTopic,
		chatService,
		presenceStore,
		natsPub,
		sysLogger,
	)

	// 5. WebSocket hub + gateway
	gatewayLogger := logger.NewIsolatedLogger(cfg.App.GatewayLogFilePath)
	wsHub := websocket.NewHub(gatewayLogger)
	wsHub.SetPresenceHooks(
		func(userID uuid.UUID) {
			if err := publisherService.PublishPresenceChange(userID, true); err != nil {
				gatewayLogger.Warn("Hub", "Failed to publish presence-online", map[string]interface{}{"user_id": userID, "error": err.Error()})
			}
		},
		func(userID uuid.UUID) {
			if err := publisherService.PublishPresenceChange(userID, false); err != nil {
				gatewayLogger.Warn("Hub", "Failed to publish presence-offline", map[string]interface{}{"user_id": userID, "error": err.Error()})
			}
		},
	)
	go wsHub.Run()

	limiter := ratelimit.New(
		cfg.RateLimit.Limit,
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
	)

	gateway := websocket.NewGateway(wsHub, tokenService, chatService, messageService, limiter, gatewayLogger)
	gatewayHandler := handler.NewGatewayHandler(gateway, gatewayLogger)

	// 6. Chat feed worker (room-list push on chat creation)
	var feedService *service.FeedService
	if natsSub != nil {
		feedService = service.NewFeedService(natsSub, chatService, wsHub, sysLogger)
		go feedService.Start()
	}

	return &Container{
		AuthController: controller.NewAuthController(authService),
		ChatController: controller.NewChatController(chatService, messageService),

		GatewayHandler: gatewayHandler,
		WebSocketHub:   wsHub,

		PresenceService: presenceService,
		FeedService:     feedService,
	}
}
