package integrity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sudhaar/complaint-server/internal/complaints"
)

// Worker periodically rebuilds the Merkle tree from the complaint store.
type Worker struct {
	svc          *Service
	complaintSvc *complaints.Service
	logger       *zap.SugaredLogger
}

// NewWorker creates a background integrity worker.
func NewWorker(svc *Service, complaintSvc *complaints.Service, logger *zap.SugaredLogger) *Worker {
	return &Worker{svc: svc, complaintSvc: complaintSvc, logger: logger}
}

// Start begins the periodic rebuild loop. It blocks until ctx is
// cancelled; run it in its own goroutine.
func (w *Worker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.Rebuild(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Integrity worker stopped")
			return
		case <-ticker.C:
			w.Rebuild(ctx)
		}
	}
}

// Rebuild fetches all complaints and rebuilds the tree once.
func (w *Worker) Rebuild(ctx context.Context) {
	all, err := w.complaintSvc.ListAll(ctx)
	if err != nil {
		w.logger.Errorw("Integrity rebuild failed to list complaints", "error", err)
		return
	}
	if err := w.svc.Rebuild(all); err != nil {
		w.logger.Errorw("Integrity rebuild failed", "error", err)
	}
}
