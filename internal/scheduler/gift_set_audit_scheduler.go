package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/vintagebeauty/storefront-backend/internal/app/service"
	"github.com/vintagebeauty/storefront-backend/pkg/logger"
)

const auditTimeout = 5 * time.Minute

// Auditor is the part of the product service the scheduler drives.
type Auditor interface {
	AuditGiftSets(ctx context.Context) (*service.GiftSetAuditReport, error)
}

// GiftSetAuditScheduler periodically reports gift sets whose stored totals
// drifted from their components. It never rewrites a product.
type GiftSetAuditScheduler struct {
	cron    *cron.Cron
	spec    string
	auditor Auditor
}

func NewGiftSetAuditScheduler(auditor Auditor, spec string) *GiftSetAuditScheduler {
	return &GiftSetAuditScheduler{
		cron:    cron.New(),
		spec:    spec,
		auditor: auditor,
	}
}

// Start registers the audit job and starts the cron loop.
func (s *GiftSetAuditScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.RunOnce); err != nil {
		logger.Error("Failed to add cron job for gift set audit", err, map[string]interface{}{
			"schedule": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Gift set audit scheduler started", map[string]interface{}{
		"schedule": s.spec,
	})
	return nil
}

// RunOnce performs a single audit and logs every stale bundle.
func (s *GiftSetAuditScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()

	logger.Info("Starting scheduled gift set audit")

	report, err := s.auditor.AuditGiftSets(ctx)
	if err != nil {
		logger.Error("Scheduled gift set audit failed", err)
		return
	}

	for _, entry := range report.Stale {
		logger.Warn("Gift set totals are stale", map[string]interface{}{
			"product_id":       entry.ProductID,
			"slug":             entry.Slug,
			"stored_total":     entry.StoredTotal.String(),
			"current_total":    entry.CurrentTotal.String(),
			"unresolved_items": entry.UnresolvedItems,
		})
	}

	logger.Info("Scheduled gift set audit finished", map[string]interface{}{
		"checked": report.Checked,
		"stale":   len(report.Stale),
	})
}

// Stop waits for a running audit to finish.
func (s *GiftSetAuditScheduler) Stop() {
	logger.Info("Stopping gift set audit scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Gift set audit scheduler stopped")
}
