package session

import (
	"context"
	"log"
	"time"
)

// CleanupWorker 定期執行過期 session 清理。
type CleanupWorker struct {
	manager  *Manager
	interval time.Duration
	stopChan chan struct{}
}

// NewCleanupWorker 建立背景清理工作者；interval <= 0 時預設 24 小時。
func NewCleanupWorker(manager *Manager, interval time.Duration) *CleanupWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &CleanupWorker{
		manager:  manager,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start 啟動迴圈，獨立 goroutine 執行，不阻塞請求路徑。
func (w *CleanupWorker) Start() {
	log.Printf("[Cleanup] starting session cleanup worker with interval: %v", w.interval)
	ticker := time.NewTicker(w.interval)
	go func() {
		// 啟動後立即執行一次
		w.runOnce()

		for {
			select {
			case <-ticker.C:
				w.runOnce()
			case <-w.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop 停止迴圈。
func (w *CleanupWorker) Stop() {
	close(w.stopChan)
}

func (w *CleanupWorker) runOnce() {
	ctx := context.Background()
	n, err := w.manager.CleanupExpired(ctx)
	if err != nil {
		log.Printf("[Cleanup] sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[Cleanup] expired %d sessions", n)
	}
}
