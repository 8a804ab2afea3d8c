package persist

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Shaytris/Obsidian/internal/config"
	"github.com/Shaytris/Obsidian/internal/domain"
)

// MessageModel is the persisted row for one chat message.
type MessageModel struct {
	MessageID string `gorm:"primaryKey;size:64"`
	User      string `gorm:"size:128;index"`
	Channel   string `gorm:"size:128;index"`
	Content   string `gorm:"size:2048"`
	ReplyTo   string `gorm:"size:64"`
	Timestamp time.Time
	CreatedAt time.Time
}

func (MessageModel) TableName() string {
	return "messages"
}

// GormSink stores accepted messages through GORM. The driver is
// selected by configuration: sqlite for a standalone hub, mysql or
// postgres for shared deployments.
type GormSink struct {
	db *gorm.DB
}

func NewGormSink(cfg config.DatabaseConfig) (*GormSink, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
		)
		dialector = postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		})

	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
		)
		dialector = mysql.Open(dsn)

	case "sqlite":
		dialector = sqlite.Open(cfg.FilePath)

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&MessageModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate messages table: %w", err)
	}

	return &GormSink{db: db}, nil
}

func (s *GormSink) Save(ctx context.Context, msg *domain.PersistedMessage) error {
	model := &MessageModel{
		MessageID: msg.MessageID,
		User:      msg.User,
		Channel:   msg.Channel,
		Content:   msg.Content,
		ReplyTo:   msg.ReplyTo,
		Timestamp: msg.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to persist message %s: %w", msg.MessageID, err)
	}
	return nil
}

// Messages returns up to limit stored messages for a channel, oldest
// first, for the history API.
func (s *GormSink) Messages(ctx context.Context, channel string, limit int) ([]domain.PersistedMessage, error) {
	if limit < 1 {
		limit = 50
	}

	var models []MessageModel
	err := s.db.WithContext(ctx).
		Where("channel = ?", channel).
		Order("timestamp ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load messages for %s: %w", channel, err)
	}

	out := make([]domain.PersistedMessage, len(models))
	for i, m := range models {
		out[i] = domain.PersistedMessage{
			MessageID: m.MessageID,
			User:      m.User,
			Channel:   m.Channel,
			Content:   m.Content,
			ReplyTo:   m.ReplyTo,
			Timestamp: m.Timestamp,
		}
	}
	return out, nil
}

func (s *GormSink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
