package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/store"
)

const (
	journalBatchSize     = 32
	journalQueueSize     = 256
	journalFlushInterval = time.Second
)

// Journal records a session and its classified frames in the store. Rows are
// queued by OnFrame and written in batches by a background goroutine, so the
// frame loop never waits on the database unless the queue is full.
type Journal struct {
	store   *store.Store
	session *store.Session
	log     logrus.FieldLogger

	rows      chan store.Expression
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	failures int
}

// StartJournal creates the session row for a run with cfg and starts the
// batch writer. Finish must be called to flush it.
func StartJournal(s *store.Store, cfg config.Config, log logrus.FieldLogger) (*Journal, error) {
	sess := &store.Session{
		Device:     cfg.Device,
		OutputPath: cfg.Output,
		FPS:        cfg.FPS,
	}
	if err := s.Sessions().Create(sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	j := &Journal{
		store:   s,
		session: sess,
		log:     log,
		rows:    make(chan store.Expression, journalQueueSize),
		done:    make(chan struct{}),
	}
	go j.writeLoop()

	log.WithField("session", sess.ID).Info("Journal session started")
	return j, nil
}

// SessionID returns the journal's session ID.
func (j *Journal) SessionID() string {
	return j.session.ID
}

// OnFrame is a FrameCallback queueing classified frames. It must not be
// called after Finish.
func (j *Journal) OnFrame(info FrameInfo, _ *gocv.Mat) {
	if !info.Classified {
		return
	}

	j.rows <- store.Expression{
		SessionID:   j.session.ID,
		FrameIndex:  info.Index,
		TimestampMs: info.TimestampMs,
		Label:       info.Label,
	}
}

func (j *Journal) writeLoop() {
	defer close(j.done)

	ticker := time.NewTicker(journalFlushInterval)
	defer ticker.Stop()

	batch := make([]*store.Expression, 0, journalBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := j.store.Expressions().RecordBatch(batch); err != nil {
			j.recordFailure(err, len(batch))
		}
		batch = make([]*store.Expression, 0, journalBatchSize)
	}

	for {
		select {
		case row, ok := <-j.rows:
			if !ok {
				flush()
				return
			}
			batch = append(batch, &row)
			if len(batch) >= journalBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// recordFailure counts rows that could not be stored. Only the first error is
// logged; store errors never stop the pipeline.
func (j *Journal) recordFailure(err error, rows int) {
	j.mu.Lock()
	first := j.failures == 0
	j.failures += rows
	j.mu.Unlock()

	if first {
		j.log.WithError(err).WithField("rows", rows).Warn("Error recording expressions")
	}
}

// Failures returns how many frames could not be recorded.
func (j *Journal) Failures() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.failures
}

// Finish flushes queued frames and stores the run's final counters.
func (j *Journal) Finish(summary Summary) error {
	j.closeOnce.Do(func() { close(j.rows) })
	<-j.done

	if err := j.store.Sessions().Finish(j.session.ID, summary.Frames, summary.Detections, time.Now()); err != nil {
		return fmt.Errorf("finish session %s: %w", j.session.ID, err)
	}

	j.log.WithFields(logrus.Fields{
		"session":  j.session.ID,
		"failures": j.Failures(),
	}).Info("Journal session finished")
	return nil
}
