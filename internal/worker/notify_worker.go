package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sistec/enquiry-backend/internal/config"
	"github.com/sistec/enquiry-backend/internal/logger"
	"github.com/sistec/enquiry-backend/internal/model"
	"github.com/sistec/enquiry-backend/internal/notify"
)

// NotifyWorker consumes notify_pending_queue and emails the admins about each forwarded question.
type NotifyWorker struct {
	rdb        *redis.Client
	mailer     notify.Mailer
	recipients []string
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewNotifyWorker creates a new NotifyWorker.
func NewNotifyWorker(rdb *redis.Client, mailer notify.Mailer, recipients []string, log zerolog.Logger) *NotifyWorker {
	return &NotifyWorker{
		rdb:        rdb,
		mailer:     mailer,
		recipients: recipients,
		retryDelay: 5 * time.Second,
		log:        logger.Component(log, "notify_worker"),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.log.Info().Int("recipients", len(w.recipients)).Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.drain(drainCtx)
			cancel()
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *NotifyWorker) processNext(ctx context.Context) {
	queue := config.WorkerKey.NotifyPendingQueue

	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, queue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
			time.Sleep(time.Second)
		}
		return
	}
	if len(result) < 2 {
		return
	}

	if err := w.handle(ctx, result[1]); err != nil {
		w.log.Error().Err(err).Msg("Notify error, retrying later")
		w.requeue(context.WithoutCancel(ctx), result[1])
		select {
		case <-ctx.Done():
		case <-time.After(w.retryDelay):
		}
	}
}

// handle sends the email for one queued event. Malformed payloads are logged and dropped.
func (w *NotifyWorker) handle(ctx context.Context, raw string) error {
	var ev model.ModerationEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error, dropping item")
		return nil
	}
	if ev.Type != model.EventQueryPending {
		return nil
	}
	if len(w.recipients) == 0 {
		w.log.Debug().Int64("query_id", ev.QueryID).Msg("No admin recipients configured")
		return nil
	}

	if err := w.mailer.Send(ctx, notify.PendingQueryMessage(w.recipients, ev)); err != nil {
		if errors.Is(err, notify.ErrRejected) {
			w.log.Error().Err(err).Int64("query_id", ev.QueryID).Msg("Notification rejected, dropping item")
			return nil
		}
		return err
	}
	w.log.Info().Int64("query_id", ev.QueryID).Msg("Admins notified")
	return nil
}

// drain processes all remaining items in the queue before shutdown.
func (w *NotifyWorker) drain(ctx context.Context) {
	queue := config.WorkerKey.NotifyPendingQueue
	drained := 0
	for ctx.Err() == nil {
		raw, err := w.rdb.LPop(ctx, queue).Result()
		if err != nil {
			break
		}
		if err := w.handle(ctx, raw); err != nil {
			w.log.Error().Err(err).Msg("Drain notify error")
			w.requeue(context.WithoutCancel(ctx), raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}

// requeue puts a failed item back at the tail. The payload is logged if Redis refuses it.
func (w *NotifyWorker) requeue(ctx context.Context, raw string) {
	if err := w.rdb.RPush(ctx, config.WorkerKey.NotifyPendingQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).Str("payload", raw).Msg("Re-queue failed, notification lost")
	}
}

// Backlog reports how many notifications are waiting in the queue.
func (w *NotifyWorker) Backlog(ctx context.Context) (int64, error) {
	return w.rdb.LLen(ctx, config.WorkerKey.NotifyPendingQueue).Result()
}
