package withdrawal

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Worker sweeps withdrawals stuck in processing and refunds their holds.
// A withdrawal only stays processing when the process died between the
// hold commit and the settle/refund commit, so after the stuck window any
// remaining processing row is treated as an unknown gateway outcome.
type Worker struct {
	service    *Service
	repo       *Repository
	interval   time.Duration
	stuckAfter time.Duration
	stopCh     chan struct{}
}

// NewWorker creates a recovery sweep worker.
func NewWorker(service *Service, repo *Repository, interval, stuckAfter time.Duration) *Worker {
	if interval == 0 {
		interval = 5 * time.Minute
	}
	if stuckAfter == 0 {
		stuckAfter = 30 * time.Minute
	}
	return &Worker{
		service:    service,
		repo:       repo,
		interval:   interval,
		stuckAfter: stuckAfter,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the background worker
func (w *Worker) Start() {
	log.Info().Msg("Starting withdrawal recovery worker...")
	go w.loop()
}

// Stop gracefully stops the background worker
func (w *Worker) Stop() {
	log.Info().Msg("Stopping withdrawal recovery worker...")
	close(w.stopCh)
}

func (w *Worker) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	w.sweep()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-w.stuckAfter)
	stuck, err := w.repo.ListStuckProcessing(ctx, cutoff, 50)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list stuck withdrawals")
		return
	}
	if len(stuck) == 0 {
		return
	}

	log.Info().Int("count", len(stuck)).Msg("Refunding stuck withdrawals")
	for i := range stuck {
		wd := &stuck[i]
		if err := w.service.RefundStuck(ctx, wd); err != nil {
			log.Error().
				Err(err).
				Str("withdrawal_id", wd.ID.String()).
				Msg("Failed to refund stuck withdrawal")
		}
	}
}
