// Package worker drives the pipeline when nobody is watching: it runs
// loop iterations on a schedule and serves queued agent messages.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ItaloOlivier/ayonne-sub000/internal/orchestrator"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
	"github.com/ItaloOlivier/ayonne-sub000/internal/queue"
)

const consumeBlock = 5 * time.Second

type Worker struct {
	queue       *queue.RedisQueue
	router      *protocol.Router
	orch        *orchestrator.Orchestrator
	interval    time.Duration
	concurrency int
	batchSize   int
	log         *logrus.Entry
}

// New builds a worker. q may be nil, which disables stream consumption
// and leaves only the loop schedule.
func New(q *queue.RedisQueue, router *protocol.Router, orch *orchestrator.Orchestrator, interval time.Duration, concurrency, batchSize int, log *logrus.Entry) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Worker{
		queue:       q,
		router:      router,
		orch:        orch,
		interval:    interval,
		concurrency: concurrency,
		batchSize:   batchSize,
		log:         log,
	}
}

// Start blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.log.WithFields(logrus.Fields{
		"interval":    w.interval,
		"concurrency": w.concurrency,
		"batch_size":  w.batchSize,
		"consuming":   w.queue != nil,
	}).Info("Worker starting")

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.runSchedule(ctx)
	}()

	if w.queue != nil {
		jobs := make(chan queue.Message, w.concurrency*2)

		for i := 0; i < w.concurrency; i++ {
			wg.Add(1)
			go func(workerID int) {
				defer wg.Done()
				w.processJobs(ctx, workerID, jobs)
			}(i)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			w.consume(ctx, jobs)
		}()
	}

	wg.Wait()
	return nil
}

// runSchedule runs one iteration immediately, then one per interval.
// A tick that lands while an iteration is still in flight is skipped.
func (w *Worker) runSchedule(ctx context.Context) {
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	if swept := w.orch.Approvals().Sweep(time.Now()); swept > 0 {
		w.log.WithField("expired", swept).Info("Expired stale approvals")
	}

	result, err := w.orch.RunLoop(ctx)
	if err != nil {
		if errors.Is(err, orchestrator.ErrLoopRunning) {
			w.log.Debug("Skipping tick, loop iteration still running")
			return
		}
		w.log.WithError(err).Error("Loop iteration failed")
		return
	}

	w.log.WithFields(logrus.Fields{
		"loop_id":  result.ID,
		"failed":   result.Failed(),
		"next_run": result.NextRun,
	}).Info("Scheduled loop iteration complete")
}

func (w *Worker) consume(ctx context.Context, jobs chan<- queue.Message) {
	defer close(jobs)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			messages, err := w.queue.Consume(ctx, int64(w.batchSize), consumeBlock)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				w.log.WithError(err).Error("Error consuming messages")
				time.Sleep(time.Second)
				continue
			}

			for _, msg := range messages {
				select {
				case jobs <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (w *Worker) processJobs(ctx context.Context, workerID int, jobs <-chan queue.Message) {
	for msg := range jobs {
		if err := w.processMessage(ctx, msg); err != nil {
			w.log.WithError(err).WithFields(logrus.Fields{
				"worker":     workerID,
				"message_id": msg.Message.ID,
			}).Error("Error processing message")
			continue
		}

		if err := w.queue.Ack(ctx, msg.ID); err != nil {
			w.log.WithError(err).WithFields(logrus.Fields{
				"worker":   workerID,
				"entry_id": msg.ID,
			}).Error("Error acking message")
		}
	}
}

// processMessage dispatches one queued request through the router and
// publishes the unit's response to the reply stream.
func (w *Worker) processMessage(ctx context.Context, msg queue.Message) error {
	resp, err := w.router.Dispatch(ctx, msg.Message)
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}

	return w.queue.PublishReply(ctx, resp)
}
