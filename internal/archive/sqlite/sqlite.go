package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/echowire/echowire/internal/archive"
	"github.com/echowire/echowire/internal/config"
)

// Store is a GORM-backed SQLite implementation of archive.Archive.
type Store struct {
	db *gorm.DB
}

type messageModel struct {
	Seq       uint               `gorm:"primaryKey"`
	MessageID int64              `gorm:"index"`
	Sender    string
	Text      string
	Timestamp time.Time          `gorm:"index"`
	Reactions []archive.Reaction `gorm:"serializer:json"`
	FileURL   string
	FileType  string
}

func (messageModel) TableName() string {
	return "messages"
}

// NewStore opens a SQLite database at the provided path.
func NewStore(cfg config.DatabaseConfig) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate applies schema updates.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&messageModel{})
}

// Append stores one message record.
func (s *Store) Append(ctx context.Context, msg *archive.Message) error {
	if msg == nil {
		return errors.New("nil message")
	}
	model := messageModel{
		MessageID: msg.MessageID,
		Sender:    msg.Sender,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
		Reactions: msg.Reactions,
		FileURL:   msg.FileURL,
		FileType:  msg.FileType,
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// Recent returns up to limit of the newest messages, oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]archive.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	var models []messageModel
	err := s.db.WithContext(ctx).
		Order("seq DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	messages := make([]archive.Message, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		model := models[i]
		messages = append(messages, archive.Message{
			MessageID: model.MessageID,
			Sender:    model.Sender,
			Text:      model.Text,
			Timestamp: model.Timestamp,
			Reactions: model.Reactions,
			FileURL:   model.FileURL,
			FileType:  model.FileType,
		})
	}
	return messages, nil
}
