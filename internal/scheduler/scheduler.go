package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Backuper snapshots the record file into dir, keeping the newest keep copies.
type Backuper interface {
	Backup(dir string, keep int) (string, error)
}

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

func New(log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		log:  log.With("component", "scheduler"),
	}
}

// AddBackup registers a snapshot job on a standard five-field cron spec.
func (s *Scheduler) AddBackup(spec string, b Backuper, dir string, keep int) error {
	_, err := s.cron.AddFunc(spec, func() {
		path, err := b.Backup(dir, keep)
		if err != nil {
			s.log.Error("backup failed", "dir", dir, "err", err)
			return
		}
		s.log.Info("backup written", "path", path)
	})
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) Entries() []cron.Entry { return s.cron.Entries() }
