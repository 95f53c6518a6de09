package jobs

import (
	"context"
	"log"
	"time"

	config "ec-payment/configs"
	"ec-payment/services"
)

// ReconcileJob periodically re-queries the gateway for payments stuck in
// pending, covering notifications that were never delivered and that nobody
// polled status for.
type ReconcileJob struct {
	svc    *services.PaymentService
	minAge time.Duration
	limit  int
}

func NewReconcileJob(svc *services.PaymentService) *ReconcileJob {
	return &ReconcileJob{
		svc:    svc,
		minAge: time.Duration(config.ConfigInt("RECONCILE_MIN_AGE_MINUTES", 15)) * time.Minute,
		limit:  config.ConfigInt("RECONCILE_BATCH_SIZE", 50),
	}
}

func (j *ReconcileJob) Run() {
	log.Println("Running job: ReconcileStalePendingPayments...")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	resolved, err := j.svc.ReconcileStalePending(ctx, j.minAge, j.limit)
	if err != nil {
		log.Printf("Error reconciling stale pending payments: %v", err)
		return
	}
	if resolved > 0 {
		log.Printf("Reconciled %d stale pending payment(s)", resolved)
	}
}
