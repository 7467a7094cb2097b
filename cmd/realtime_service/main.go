package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/app"
	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/domain"
	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/repository"
	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/router"
	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/config"
	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/database"
	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/logger"
	testtool "github.com/LajoLouis/lajospacesbackend-sub000/pkg/test_tool"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.RealtimeService, config.EnvConfig.RealtimeServiceLogPath)
	cfg := config.LoadConfig[config.Realtime](config.EnvConfig.RealtimeService, config.EnvConfig.RealtimeServiceYAMLPath)

	go testtool.StartPprof()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Mongo holds conversations and messages.
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// Redis keeps the durable presence snapshots.
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// Kafka carries push-class notification requests.
	pushWriter, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.PushTopic,
		RetryCount:    cfg.Kafka.RetryCount,
		RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect kafka err : %v", err))
	}
	defer pushWriter.Close()

	// RabbitMQ carries email-class notification requests.
	rabbitConn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    cfg.Rabbit.URL,
		RetryCount:    cfg.Rabbit.RetryCount,
		RetryInterval: time.Duration(cfg.Rabbit.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect rabbitmq err : %v", err))
	}
	defer rabbitConn.Close()
	rabbitCh, err := database.GetRabbitMQChannelWithRetry(rabbitConn, cfg.Rabbit.RetryCount, time.Duration(cfg.Rabbit.RetryInterval))
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("rabbitmq channel err : %v", err))
	}
	if _, err := rabbitCh.QueueDeclare(cfg.Rabbit.EmailQueue, true, false, false, false, nil); err != nil {
		logger.Log.Fatal(fmt.Sprintf("rabbitmq queue declare err : %v", err))
	}

	convRepo := repository.NewMongoConversationRepository(mongo.Database)
	msgRepo := repository.NewMongoMessageRepository(mongo.Database)
	snapshotRepo := repository.NewPresenceSnapshotRepository(
		database.NewRedisRepository[domain.PresenceSnapshot](redisClient))
	publisher := repository.NewNotificationPublisher(pushWriter, database.NewRabbitRepository(rabbitCh), cfg.Rabbit.EmailQueue)

	hub := app.NewHub()
	presence := app.NewPresenceRegistry()
	typing := app.NewTypingRegistry(time.Duration(cfg.Typing.TTLSeconds) * time.Second)
	dispatcher := app.NewNotificationDispatcher(publisher)

	messageUC := app.NewMessageUseCase(
		convRepo, msgRepo, presence, hub, dispatcher,
		time.Duration(cfg.Presence.AbsentAfterMinutes)*time.Minute,
	)
	wsHandler := app.NewRealtimeWebsocketHandler(messageUC, presence, typing, hub, convRepo, snapshotRepo, cfg.WS)

	sweeper := app.NewSweeper(presence, typing, hub, snapshotRepo, cfg.Presence, cfg.Typing)
	go sweeper.Run(ctx)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.RealtimeServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, wsHandler, router.NewRestHandler(messageUC, presence, snapshotRepo))

	port := ":" + cfg.Port
	log.Printf("Realtime Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
