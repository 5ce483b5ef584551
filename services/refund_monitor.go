package services

import (
	"time"

	"github.com/eyespire/clinic-backend/utils"
	"gorm.io/gorm"
)

// RefundMonitor periodically backfills refunds for cancelled
// appointments whose refund creation failed at cancellation time.
type RefundMonitor struct {
	refunds  *RefundService
	Interval time.Duration
	stop     chan struct{}
}

func NewRefundMonitor(db *gorm.DB) *RefundMonitor {
	return &RefundMonitor{
		refunds:  NewRefundService(db),
		Interval: 10 * time.Minute,
		stop:     make(chan struct{}),
	}
}

// Start launches the backfill loop.
func (m *RefundMonitor) Start() {
	go m.run()
	utils.InfoLogger.Println("Refund monitor started")
}

// Stop ends the backfill loop.
func (m *RefundMonitor) Stop() {
	close(m.stop)
}

func (m *RefundMonitor) run() {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.refunds.CreateMissingRefunds(); err != nil {
				utils.ErrorLogger.Printf("Refund backfill failed: %v", err)
			}
		case <-m.stop:
			return
		}
	}
}
