package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/pushtisonawala/chat-app/internal/ai"
	"github.com/pushtisonawala/chat-app/internal/auth"
	"github.com/pushtisonawala/chat-app/internal/config"
	"github.com/pushtisonawala/chat-app/internal/db"
	"github.com/pushtisonawala/chat-app/internal/handlers"
	"github.com/pushtisonawala/chat-app/internal/middleware"
	"github.com/pushtisonawala/chat-app/internal/observability"
	"github.com/pushtisonawala/chat-app/internal/rabbitmq"
	"github.com/pushtisonawala/chat-app/internal/repositories"
	"github.com/pushtisonawala/chat-app/internal/telemetry"
	"github.com/pushtisonawala/chat-app/internal/ws"
)

const serviceName = "chat-app"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AuditExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Printf("event publisher mode: %s", rabbitmq.PublisherMode(publisher))

	audit := telemetry.NewAuditEmitter(publisher, "audit.chat", serviceName, cfg.Environment)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	userRepo := repositories.NewUserRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	groupRepo := repositories.NewGroupRepo(database)

	hub := ws.NewHub()
	dispatcher := ws.NewDispatcher(hub)

	var responder ai.Responder = ai.DisabledResponder{}
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiResponder(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("failed to init gemini client: %v", err)
		}
		responder = gemini
	} else {
		log.Println("GEMINI_API_KEY not set, assistant replies disabled")
	}
	assistant := ai.NewAssistant(responder, messageRepo, dispatcher, cfg.AITimeout, cfg.AIHistoryLimit)

	authHandler := handlers.NewAuthHandler(userRepo, tokens, audit)
	messageHandler := handlers.NewMessageHandler(userRepo, messageRepo, dispatcher)
	groupHandler := handlers.NewGroupHandler(groupRepo, messageRepo, dispatcher, assistant, audit)
	socketHandler := ws.NewSocketHandler(hub, tokens, groupRepo)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(otelgin.Middleware(serviceName))

	authMiddleware := middleware.AuthMiddleware(tokens)

	authRoutes := router.Group("/api/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/logout", authHandler.Logout)
		authRoutes.GET("/check", authMiddleware, authHandler.Check)
	}

	messageRoutes := router.Group("/api/messages", authMiddleware)
	{
		messageRoutes.GET("/users", messageHandler.GetSidebarUsers)
		messageRoutes.GET("/:id", messageHandler.GetDirectMessages)
		messageRoutes.POST("/send/:id", messageHandler.SendDirectMessage)
	}

	groupRoutes := router.Group("/api/groups", authMiddleware)
	{
		groupRoutes.POST("", groupHandler.CreateGroup)
		groupRoutes.GET("", groupHandler.ListGroups)
		groupRoutes.GET("/:group_id", groupHandler.GetGroup)
		groupRoutes.POST("/:group_id/members", groupHandler.AddMember)
		groupRoutes.GET("/:group_id/messages", groupHandler.GetGroupMessages)
		groupRoutes.POST("/:group_id/messages", groupHandler.PostGroupMessage)
	}

	router.GET("/ws", socketHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, hub.Registry(), cfg.DebugRoutes)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
