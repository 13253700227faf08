package main

import (
	"os/signal"
	"syscall"

	"github.com/questx-lab/authserver/internal/domain/cron"
	"github.com/questx-lab/authserver/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startCron(*cli.Context) error {
	if err := s.loadDatabase(); err != nil {
		return err
	}
	s.loadRepos()
	if err := s.loadStateRegistry(); err != nil {
		return err
	}
	if err := s.loadProviders(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(s.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronJobManager := cron.NewCronJobManager()
	cronJobManager.Register(cron.NewReconciliationCronJob(
		s.providerTokenRepo,
		s.refreshTokenRepo,
		s.providers,
		s.states,
		xcontext.Configs(ctx).Cron.ReconcileInterval,
	))
	cronJobManager.Start(ctx)

	return nil
}
