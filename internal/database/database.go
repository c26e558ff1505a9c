package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emilythestrangee/vamp/backend/internal/config"
	"github.com/emilythestrangee/vamp/backend/internal/models"
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Migrate creates or updates the engine's tables and indexes.
	Migrate() error

	// Close terminates the database connection.
	// It returns an error if the connection cannot be closed.
	Close() error
	GetDB() *gorm.DB
}

type service struct {
	db   *gorm.DB
	name string
	log  logrus.FieldLogger
}

// New opens a pooled Postgres connection.
func New(cfg config.Database, log *logrus.Logger) (Service, error) {
	level := logger.Warn
	if cfg.LogSQL {
		level = logger.Info
	}

	// GORM writes through the service logger
	gormLogger := logger.New(
		log,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := Open(postgres.Open(cfg.DSN()), gormLogger)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.Println("✅ Database connected successfully")

	return &service{db: db, name: cfg.Name, log: log}, nil
}

// Open wraps an already configured dialector. Tests use it to hand in a
// mocked connection.
func Open(dialector gorm.Dialector, gormLogger logger.Interface) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// NewWithDB adopts an existing gorm handle.
func NewWithDB(db *gorm.DB, log logrus.FieldLogger) Service {
	return &service{db: db, log: log}
}

func (s *service) GetDB() *gorm.DB {
	return s.db
}

// Migrate auto migrates every engine table.
func (s *service) Migrate() error {
	err := s.db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Thread{},
		&models.Vote{},
		&models.Grant{},
		&models.GrantApplication{},
		&models.ThreadReply{},
		&models.Comment{},
	)
	if err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}

	s.log.Info("✅ Database migrations completed")
	return nil
}

// Health pings the pool and reports its connection counts. A "status" of
// "down" carries the failure in "error".
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	down := func(err error) map[string]string {
		return map[string]string{"status": "down", "error": err.Error()}
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return down(fmt.Errorf("pool: %w", err))
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return down(fmt.Errorf("ping %s: %w", s.name, err))
	}

	pool := sqlDB.Stats()
	return map[string]string{
		"status":           "up",
		"database":         s.name,
		"open_connections": strconv.Itoa(pool.OpenConnections),
		"in_use":           strconv.Itoa(pool.InUse),
		"idle":             strconv.Itoa(pool.Idle),
		"wait_count":       strconv.FormatInt(pool.WaitCount, 10),
	}
}

func (s *service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("close %s: %w", s.name, err)
	}
	s.log.WithField("database", s.name).Info("closing connection pool")
	return sqlDB.Close()
}
