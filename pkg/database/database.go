package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"query_clash_backend/internal/config"
	"query_clash_backend/internal/model"
	"query_clash_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Capabilities describe optional schema features, probed once at startup.
type Capabilities struct {
	// SolvedAt is false on databases created before investigation_progress
	// carried a solve timestamp.
	SolvedAt bool
}

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "sqlite", "sqlite3":
		if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=1&_txlock=immediate", filepath.ToSlash(cfg.Path))
		return sqlite.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Open connects without touching the schema.
func Open(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if mode == "debug" {
		level = gormlogger.Info
	}

	db, err := gorm.Open(d, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(16)
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// InitDB opens the database, migrates the game tables when asked to, seeds the
// investigations and probes the schema capabilities.
func InitDB(cfg *config.DatabaseConfig, mode string, migrate bool) (*gorm.DB, Capabilities, error) {
	db, err := Open(cfg, mode)
	if err != nil {
		return nil, Capabilities{}, err
	}

	logger.Log.Info("Database connection established", zap.String("driver", cfg.Driver))

	if migrate {
		if err := Migrate(db); err != nil {
			return nil, Capabilities{}, err
		}
		logger.Log.Info("Database migration completed")
	}

	if err := SeedInvestigations(db); err != nil {
		return nil, Capabilities{}, err
	}

	caps := Probe(db)
	return db, caps, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(model.GameModels()...)
}

// Probe inspects the live schema. Missing optional columns are reported and
// degrade features instead of failing requests later.
func Probe(db *gorm.DB) Capabilities {
	caps := Capabilities{
		SolvedAt: db.Migrator().HasColumn(&model.InvestigationProgress{}, "solved_at"),
	}
	if !caps.SolvedAt {
		logger.Log.Warn("investigation_progress has no solved_at column; solve times will be unavailable (run migrate to add it)")
	}
	return caps
}
