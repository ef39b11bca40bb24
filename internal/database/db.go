package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/lify-app/lify-backend/internal/config"
	"github.com/lify-app/lify-backend/internal/models"
	"github.com/lify-app/lify-backend/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Dialector picks the gorm driver from the DSN: "sqlite://path" or
// "file:..." go to SQLite, everything else to PostgreSQL.
func Dialector(dsn string) gorm.Dialector {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasPrefix(dsn, "file:"):
		return sqlite.Open(dsn)
	default:
		return postgres.Open(dsn)
	}
}

// GormConfig stores every timestamp in UTC so watermark comparisons
// behave the same on every driver.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger: gormlogger.New(zapWriter{}, gormlogger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      gormlogger.Warn,
			// Lookups that miss are the normal first-contact path
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	}
}

// zapWriter sends gorm's slow-query and error lines to the global logger
type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	logger.Log.Warn("gorm", zap.String("trace", fmt.Sprintf(format, args...)))
}

func Connect(cfg *config.Config) error {
	var err error

	DB, err = gorm.Open(Dialector(cfg.DatabaseURL), GormConfig())
	if err != nil {
		return err
	}

	logger.Log.Info("Database connected successfully")
	return nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.MessageReaction{},
	)
	if err != nil {
		logger.Log.Error("Migration failed", zap.Error(err))
		return err
	}

	logger.Log.Info("Database migration completed")
	return nil
}
