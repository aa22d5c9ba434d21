package database

import (
	"fmt"
	"time"

	"drowsiness-detector-go/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config конфигурация базы данных
type Config struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
}

// DSN строка подключения к PostgreSQL
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode,
	)
}

// DSNForLog строка подключения без пароля для логирования
func (c Config) DSNForLog() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=*** dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Database, c.SSLMode,
	)
}

// MemoryPath путь SQLite для базы в памяти процесса
const MemoryPath = ":memory:"

func gormConfig(log *logrus.Logger) *gorm.Config {
	// Настройка логгера GORM
	newLogger := logger.New(
		log, // пишем через logrus
		logger.Config{
			SlowThreshold:             time.Second,   // Slow SQL threshold
			LogLevel:                  logger.Silent, // Log level
			IgnoreRecordNotFoundError: true,          // Ignore ErrRecordNotFound error for logger
			Colorful:                  false,         // Disable color
		},
	)

	return &gorm.Config{
		Logger:  newLogger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Connect подключается к базе данных PostgreSQL
func Connect(config Config, log *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(config.DSN()), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Настройка пула соединений
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Infof("Successfully connected to PostgreSQL database (%s)", config.DSNForLog())
	return db, nil
}

// ConnectSQLite открывает базу SQLite по пути path. MemoryPath создает базу в памяти.
func ConnectSQLite(path string, log *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// База в памяти живет, пока открыто ее единственное соединение
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	log.Infof("Opened SQLite database %s", path)
	return db, nil
}

// OpenMemory открывает базу SQLite в памяти и выполняет миграции
func OpenMemory(log *logrus.Logger) (*gorm.DB, error) {
	db, err := ConnectSQLite(MemoryPath, log)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		Close(db)
		return nil, err
	}
	return db, nil
}

// Migrate выполняет автомиграции
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	if err := db.AutoMigrate(
		&model.Alert{},
		&model.Session{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close закрывает соединение с базой данных
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// HealthCheck проверяет состояние подключения к базе данных
func HealthCheck(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}
