package model

import (
	"time"
)

// Movie 电影模型（TMDB 信息）
type Movie struct {
	ID          int       `json:"id" db:"id"`
	TMDBID      int       `json:"tmdb_id" db:"tmdb_id" gorm:"column:tmdb_id;unique"`
	Title       string    `json:"title" db:"title"`
	Year        int       `json:"year" db:"year"`
	Director    string    `json:"director" db:"director"`
	Genre       string    `json:"genre" db:"genre"`
	IMDbRating  float64   `json:"imdb_rating" db:"imdb_rating" gorm:"column:imdb_rating"`
	PlotSummary string    `json:"plot_summary" db:"plot_summary"`
	PosterURL   string    `json:"poster_url" db:"poster_url"`
	BackdropURL string    `json:"backdrop_url" db:"backdrop_url"`
	Runtime     int       `json:"runtime" db:"runtime"` // 分钟
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at" gorm:"index"`
}

// ConversationType 会话类型
type ConversationType string

const (
	ConversationGlobal ConversationType = "global"
	ConversationMovie  ConversationType = "movie"
)

// Conversation 聊天会话
// MovieID 仅在电影会话中填写
type Conversation struct {
	ID        int              `json:"id" db:"id"`
	Type      ConversationType `json:"conversation_type" db:"conversation_type"`
	MovieID   *int             `json:"movie_id" db:"movie_id"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at" gorm:"index"`
}

// MessageRole 消息角色
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message 聊天消息
// ContextSections 保存助手回答引用的章节（JSON 序列化的 SourceRef 列表）
type Message struct {
	ID              int         `json:"id" db:"id"`
	ConversationID  int         `json:"conversation_id" db:"conversation_id" gorm:"index"`
	Role            MessageRole `json:"role" db:"role"`
	Content         string      `json:"content" db:"content"`
	ContextSections []byte      `json:"context_sections" db:"context_sections" gorm:"type:jsonb"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
}
