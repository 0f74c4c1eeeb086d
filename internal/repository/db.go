package repository

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrStoreUnavailable 持久层不可达或查询失败
// 空结果永远表示"没有匹配"，查询出错必须显式返回本错误，不得吞掉
var ErrStoreUnavailable = errors.New("section store unavailable")

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// InitDB 初始化数据库连接
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return db, nil
}

// Repositories 仓库集合
type Repositories struct {
	DB           *gorm.DB
	Movie        *MovieRepository
	Section      *SectionRepository
	Conversation *ConversationRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:           db,
		Movie:        NewMovieRepository(db),
		Section:      NewSectionRepository(db),
		Conversation: NewConversationRepository(db),
	}
}
