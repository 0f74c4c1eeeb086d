package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/cinerag/internal/model"
	"gorm.io/gorm"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// FindByID 根据 ID 查找会话
func (r *ConversationRepository) FindByID(ctx context.Context, id int) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).First(&conv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Create 创建会话
func (r *ConversationRepository) Create(ctx context.Context, convType model.ConversationType, movieID *int) (*model.Conversation, error) {
	conv := &model.Conversation{
		Type:    convType,
		MovieID: movieID,
	}
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return nil, err
	}
	return conv, nil
}

// AppendMessage 追加消息并刷新会话更新时间
func (r *ConversationRepository) AppendMessage(ctx context.Context, msg *model.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", msg.ConversationID).
		Update("updated_at", time.Now()).Error
}

// ListMessages 按时间正序返回会话消息
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID int) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}
