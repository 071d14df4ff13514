package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	catalogRefreshTimeout    = 2 * time.Minute
	notificationPurgeTimeout = 5 * time.Minute
)

type CatalogRefresher interface {
	Refresh(ctx context.Context) error
}

type NotificationPurger interface {
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

type Config struct {
	CatalogRefreshSpec    string
	NotificationPurgeSpec string
	NotificationRetention time.Duration
}

type Scheduler struct {
	ctx      context.Context
	cron     *cron.Cron
	cfg      Config
	catalog  CatalogRefresher
	notifier NotificationPurger
	log      *zap.Logger
}

func New(ctx context.Context, cfg Config, catalog CatalogRefresher, notifier NotificationPurger, log *zap.Logger) *Scheduler {
	c := cron.New(cron.WithLocation(time.UTC))

	return &Scheduler{
		ctx:      ctx,
		cron:     c,
		cfg:      cfg,
		catalog:  catalog,
		notifier: notifier,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.CatalogRefreshSpec, s.refreshCatalog); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.NotificationPurgeSpec, s.purgeNotifications); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) refreshCatalog() {
	ctx, cancel := context.WithTimeout(s.ctx, catalogRefreshTimeout)
	defer cancel()

	if ctx.Err() != nil {
		s.log.Info("scheduler context is done", zap.Error(ctx.Err()))
		return
	}

	if err := s.catalog.Refresh(ctx); err != nil {
		s.log.Error("failed to refresh product catalog", zap.Error(err))
	}
}

func (s *Scheduler) purgeNotifications() {
	ctx, cancel := context.WithTimeout(s.ctx, notificationPurgeTimeout)
	defer cancel()

	if ctx.Err() != nil {
		s.log.Info("scheduler context is done", zap.Error(ctx.Err()))
		return
	}

	purged, err := s.notifier.Purge(ctx, s.cfg.NotificationRetention)
	if err != nil {
		s.log.Error("failed to purge notifications",
			zap.Error(err),
			zap.Duration("retention", s.cfg.NotificationRetention))
		return
	}
	s.log.Info("purged read notifications", zap.Int64("count", purged))
}
