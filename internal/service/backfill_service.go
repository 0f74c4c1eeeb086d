package service

import (
	"context"
	"log"
	"time"
)

// BackfillService 向量回填后台任务
// 定期扫描"有内容无向量"的章节并补写向量
type BackfillService struct {
	reports *ReportService
}

// NewBackfillService 创建回填任务
func NewBackfillService(reports *ReportService) *BackfillService {
	return &BackfillService{reports: reports}
}

// Start 启动定时回填任务
func (s *BackfillService) Start() {
	ticker := time.NewTicker(10 * time.Minute)

	// 启动时先运行一次
	go s.runBackfill()

	go func() {
		for range ticker.C {
			s.runBackfill()
		}
	}()
}

func (s *BackfillService) runBackfill() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	filled, err := s.reports.BackfillEmbeddings(ctx, 100)
	if err != nil {
		log.Printf("[Backfill] 扫描缺失向量失败: %v", err)
		return
	}
	if filled > 0 {
		log.Printf("[Backfill] 已补写 %d 个章节向量", filled)
	}
}
