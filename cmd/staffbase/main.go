package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"staffbase/internal/profiles/auth"
	"staffbase/internal/profiles/controller"
	gorm "staffbase/internal/profiles/db"
	"staffbase/internal/profiles/events"
	"staffbase/internal/profiles/handlers"
	"staffbase/internal/profiles/scope"
)

// Config struct for YAML configuration
type Config struct {
	HTTPPort        int      `yaml:"HTTP_PORT"`
	DBHost          string   `yaml:"DB_HOST"`
	DBPort          int      `yaml:"DB_PORT"`
	DBUser          string   `yaml:"DB_USER"`
	DBPassword      string   `yaml:"DB_PASSWORD"`
	DBName          string   `yaml:"DB_NAME"`
	DBSSLMode       string   `yaml:"DB_SSLMODE"`
	KafkaBrokers    []string `yaml:"KAFKA_BROKERS"`
	JWTSecret       string   `yaml:"JWT_SECRET"`
	Topic           string   `yaml:"TOPIC"`
	ConsumerGroup   string   `yaml:"CONSUMER_GROUP"`
	AccessTTLMin    int      `yaml:"ACCESS_TTL_MINUTES"`
	RefreshTTLHours int      `yaml:"REFRESH_TTL_HOURS"`
}

func main() {
	logger := initLogger()
	defer func(logger *zap.Logger) {
		err := logger.Sync()
		if err != nil {
			logger.Error("failed to sync logger", zap.Error(err))
		}
	}(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	repo, err := gorm.NewRepository(initDatabase(cfg))
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
	if err != nil {
		logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	scopeEngine := scope.NewEngine(repo, logger)
	profileSvc := controller.NewProfileService(repo, scopeEngine, producer, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := events.NewSessionConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.Topic, profileSvc, logger)
	consumer.Start(ctx)
	defer consumer.Close()

	issuer := auth.NewIssuer(
		repo,
		producer,
		cfg.JWTSecret,
		time.Duration(cfg.AccessTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTTLHours)*time.Hour,
		logger,
	)

	handler := handlers.NewProfileHandler(profileSvc, issuer, logger)
	server := handlers.NewServer(cfg.HTTPPort, handler.Routes(issuer.Middleware), logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

// loadConfig loads the YAML configuration. Secrets may be overridden
// from the environment (a .env file is honored when present).
func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, err
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DBPassword = password
	}
	return &cfg, nil
}

// initDatabase initializes the database connection settings.
func initDatabase(cfg *Config) *gorm.Config {
	return &gorm.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down the server.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Server stopped properly")
}
