package deposit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const scanLockKey = "deposit:scan:lock"

// Reconciler periodically drives VerifyPendingBatch. It stands in for the
// external scheduler; the redis lock keeps multiple instances from scanning
// the same cycle concurrently.
type Reconciler struct {
	svc      *Service
	redis    *redis.Client
	interval time.Duration
	instance string
}

func NewReconciler(svc *Service, redisClient *redis.Client, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &Reconciler{
		svc:      svc,
		redis:    redisClient,
		interval: interval,
		instance: uuid.New().String(),
	}
}

// Run blocks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", r.interval).
		Msg("deposit reconciler started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("deposit reconciler stopped")
			return
		case <-ticker.C:
			r.scan(ctx)
		}
	}
}

func (r *Reconciler) scan(ctx context.Context) {
	if !r.acquireLock(ctx) {
		log.Debug().Msg("deposit scan skipped, another instance holds the lock")
		return
	}
	defer r.releaseLock(ctx)

	report, err := r.svc.VerifyPendingBatch(ctx)
	if err != nil {
		log.Error().Err(err).Msg("deposit batch scan failed")
		return
	}

	log.Info().
		Int("scanned", report.Scanned).
		Int("confirmed", report.Confirmed).
		Int("expired", report.Expired).
		Int("pending", report.Pending).
		Int("failed", report.Failed).
		Msg("deposit batch scan finished")
}

func (r *Reconciler) acquireLock(ctx context.Context) bool {
	if r.redis == nil {
		return true
	}
	ok, err := r.redis.SetNX(ctx, scanLockKey, r.instance, r.interval).Result()
	if err != nil {
		log.Warn().Err(err).Msg("deposit scan lock unavailable, proceeding without it")
		return true
	}
	return ok
}

func (r *Reconciler) releaseLock(ctx context.Context) {
	if r.redis == nil {
		return
	}
	// Only drop our own lock; an expired lock may belong to someone else.
	val, err := r.redis.Get(ctx, scanLockKey).Result()
	if err == nil && val == r.instance {
		r.redis.Del(ctx, scanLockKey)
	}
}
