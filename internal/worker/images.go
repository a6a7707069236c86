package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/velixa/storefront/pkg/queue"
)

// JobSource is the queue side the image processor consumes.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// ObjectDeleter removes stored objects by their public URL.
type ObjectDeleter interface {
	DeleteByURL(ctx context.Context, rawURL string) error
}

// ImageProcessor drains image cleanup jobs: product images replaced or
// orphaned by edits and deletes are removed from object storage.
type ImageProcessor struct {
	jobs    JobSource
	objects ObjectDeleter
	logger  *zap.Logger
	backoff time.Duration
}

// NewImageProcessor creates an image cleanup processor.
func NewImageProcessor(jobs JobSource, objects ObjectDeleter, logger *zap.Logger) *ImageProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageProcessor{jobs: jobs, objects: objects, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one image cleanup job.
func (p *ImageProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeImageDelete {
		return errors.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ImageDeletePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return errors.Wrap(err, "unmarshal payload")
	}
	if payload.URL == "" {
		return nil
	}
	if err := p.objects.DeleteByURL(ctx, payload.URL); err != nil {
		return errors.Wrap(err, "delete image")
	}
	p.logger.Info("product image deleted",
		zap.String("product_id", payload.ProductID.String()),
		zap.String("url", payload.URL))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ImageProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("image worker stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.jobs.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *ImageProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
