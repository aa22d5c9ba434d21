package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drowsiness-detector-go/internal/client"
	"drowsiness-detector-go/internal/config"
	"drowsiness-detector-go/internal/database"
	"drowsiness-detector-go/internal/handler"
	"drowsiness-detector-go/internal/notify"
	"drowsiness-detector-go/internal/repository"
	"drowsiness-detector-go/internal/rpc"
	"drowsiness-detector-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	// Инициализируем логгер
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.LoadConfig()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.Info("Запуск Drowsiness Detector API Server")

	// Инициализируем хранилище
	db := openStorage(cfg, logger)
	defer database.Close(db)
	alertRepo := repository.NewAlertRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	// Получатели оповещений: WebSocket клиенты и, если настроена, Kafka
	hub := notify.NewHub(logger)
	notifiers := notify.Multi{hub}

	var kafkaPublisher *notify.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		writer := notify.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic)
		kafkaPublisher = notify.NewKafkaPublisher(writer, logger)
		notifiers = append(notifiers, kafkaPublisher)
		logger.Infof("Оповещения публикуются в Kafka топик %s", cfg.Kafka.AlertTopic)
	}

	// Инициализируем сервисы
	monitor, err := service.NewMonitorService(cfg.Detection.ToDetector(), alertRepo, sessionRepo, notifiers, logger)
	if err != nil {
		logger.Fatalf("Некорректные параметры детекции: %v", err)
	}
	alertService := service.NewAlertService(alertRepo, sessionRepo, logger)
	landmarkClient := client.NewLandmarkClient(cfg.LandmarkAPI.BaseURL, cfg.LandmarkTimeout(), logger)
	analyzer := service.NewFrameAnalyzer(landmarkClient, monitor, logger)

	// Настраиваем Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(handler.CORSMiddleware())

	handler.NewSessionHandler(monitor, analyzer, alertService, logger).RegisterRoutes(router)
	handler.NewAlertHandler(alertService, logger).RegisterRoutes(router)
	handler.RegisterWebSocket(router, hub)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Drowsiness Detector API Server",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("HTTP сервер запущен на %s", httpServer.Addr)
		logger.Infof("API доступно по адресу: http://localhost:%d/api/v1", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Ошибка запуска HTTP сервера: %v", err)
		}
	}()

	// gRPC сервер
	grpcServer := rpc.NewGRPCServer(monitor, logger)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
	if err != nil {
		logger.Fatalf("Ошибка открытия gRPC порта %d: %v", cfg.GRPC.Port, err)
	}
	go func() {
		logger.Infof("gRPC сервер запущен на порту %d", cfg.GRPC.Port)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatalf("Ошибка gRPC сервера: %v", err)
		}
	}()

	// Ждем сигнала остановки
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done
	logger.Info("Остановка сервера...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		logger.Warn("Принудительная остановка gRPC сервера")
		grpcServer.Stop()
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Ошибка остановки HTTP сервера: %v", err)
	}

	// Закрываем активные сессии, пока хранилище и получатели еще доступны
	monitor.Close(shutdownCtx)
	hub.Close()
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Errorf("Ошибка закрытия Kafka writer: %v", err)
		}
	}

	logger.Info("Сервер остановлен")
}

// openStorage открывает базу по STORAGE_DRIVER: postgres, sqlite или memory
func openStorage(cfg *config.Config, logger *logrus.Logger) *gorm.DB {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		logger.Warn("Используется хранилище в памяти, данные не сохраняются между запусками")
		db, err = database.ConnectSQLite(database.MemoryPath, logger)
	case config.StorageSQLite:
		db, err = database.ConnectSQLite(cfg.Storage.SQLitePath, logger)
	default:
		logger.Infof("Подключение к базе данных %s", cfg.Database.DSNForLog())
		db, err = database.Connect(cfg.Database, logger)
	}
	if err != nil {
		logger.Fatalf("Ошибка подключения к базе данных: %v", err)
	}

	logger.Info("Выполнение миграций базы данных...")
	if err := database.Migrate(db); err != nil {
		logger.Fatalf("Ошибка выполнения миграций: %v", err)
	}

	if err := database.HealthCheck(db); err != nil {
		logger.Fatalf("База данных недоступна: %v", err)
	}

	logger.Info("База данных успешно подключена и готова к работе")
	return db
}
