package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"niftymic/internal/logging"
	"niftymic/internal/services"
)

// Run outcomes reported to a Recorder.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// StageRecord describes one finished stage run.
type StageRecord struct {
	RequestID  string
	Job        string
	Root       string
	Step       string
	Status     string
	ErrorKind  string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is how long the stage ran.
func (r StageRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Recorder persists stage outcomes. internal/ledger provides the SQLite one.
type Recorder interface {
	Record(ctx context.Context, rec StageRecord) error
}

func (p *Pipeline) runStage(ctx context.Context, step string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	requestID := uuid.NewString()
	ctx = services.WithJob(ctx, p.wd.Name)
	ctx = services.WithStage(ctx, step)
	ctx = services.WithRequestID(ctx, requestID)
	logger := logging.WithContext(ctx, p.logger)

	lock, err := p.wd.Lock()
	if err != nil {
		logging.ErrorWithContext(logger, "working directory locked", "stage_locked",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "wait for the other niftymic process to finish"),
		)
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("release working directory lock", logging.Error(err))
		}
	}()

	logger.Info("stage started",
		logging.String("path", p.wd.Root),
		logging.String(logging.FieldEventType, "stage_start"),
	)
	rec := StageRecord{
		RequestID: requestID,
		Job:       p.wd.Name,
		Root:      p.wd.Root,
		Step:      step,
		StartedAt: time.Now().UTC(),
	}

	stageErr := fn(ctx)
	rec.FinishedAt = time.Now().UTC()
	if stageErr != nil {
		rec.Status = StatusFailed
		rec.ErrorKind = services.Kind(stageErr)
		rec.Error = strings.TrimSpace(stageErr.Error())
		logger.Error("stage failed",
			logging.Duration("duration", rec.Duration()),
			logging.String("error_kind", rec.ErrorKind),
			logging.Error(stageErr),
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String(logging.FieldErrorHint, "partial output is left in place; fix the cause and rerun this stage"),
		)
	} else {
		rec.Status = StatusSucceeded
		logger.Info("stage completed",
			logging.Duration("duration", rec.Duration()),
			logging.String(logging.FieldEventType, "stage_complete"),
		)
	}

	if p.recorder != nil {
		if err := p.recorder.Record(ctx, rec); err != nil {
			logger.Warn("stage history not recorded",
				logging.Error(err),
				logging.String(logging.FieldEventType, "ledger_write_failed"),
				logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"),
			)
		}
	}
	return stageErr
}
