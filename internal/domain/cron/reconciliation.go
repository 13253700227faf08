package cron

import (
	"context"
	"time"

	"github.com/questx-lab/authserver/internal/domain"
	"github.com/questx-lab/authserver/internal/entity"
	"github.com/questx-lab/authserver/internal/repository"
	"github.com/questx-lab/authserver/pkg/authenticator"
	"github.com/questx-lab/authserver/pkg/oauthstate"
	"github.com/questx-lab/authserver/pkg/prometheus"
	"github.com/questx-lab/authserver/pkg/xcontext"
	"golang.org/x/sync/errgroup"
)

type ReconciliationReport struct {
	RefreshedProviderTokens int
	FailedProviderTokens    int
	SkippedProviderTokens   int
	DeletedRefreshTokens    int64
	SweptStates             int
}

// ReconciliationCronJob keeps provider tokens fresh and removes expired
// sessions and authorization states.
type ReconciliationCronJob struct {
	providerTokenRepo repository.ProviderTokenRepository
	refreshTokenRepo  repository.RefreshTokenRepository
	providers         *authenticator.Registry
	states            oauthstate.Registry
	interval          time.Duration
	now               func() time.Time
}

func NewReconciliationCronJob(
	providerTokenRepo repository.ProviderTokenRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	providers *authenticator.Registry,
	states oauthstate.Registry,
	interval time.Duration,
) *ReconciliationCronJob {
	if interval <= 0 {
		interval = time.Minute
	}

	return &ReconciliationCronJob{
		providerTokenRepo: providerTokenRepo,
		refreshTokenRepo:  refreshTokenRepo,
		providers:         providers,
		states:            states,
		interval:          interval,
		now:               time.Now,
	}
}

func (job *ReconciliationCronJob) Do(ctx context.Context) {
	report, err := job.Reconcile(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Reconciliation stopped: %v", err)
	}

	xcontext.Logger(ctx).Infof(
		"Reconciliation: %d provider tokens refreshed, %d failed, %d skipped, %d sessions deleted, %d states swept",
		report.RefreshedProviderTokens, report.FailedProviderTokens, report.SkippedProviderTokens,
		report.DeletedRefreshTokens, report.SweptStates,
	)
}

func (job *ReconciliationCronJob) RunNow() bool {
	return true
}

func (job *ReconciliationCronJob) Next() time.Time {
	return job.now().Add(job.interval)
}

// Reconcile runs one tick. It returns early with the context error when
// cancelled, every step already taken has been persisted.
func (job *ReconciliationCronJob) Reconcile(ctx context.Context) (ReconciliationReport, error) {
	var report ReconciliationReport

	if err := job.refreshProviderTokens(ctx, &report); err != nil {
		return report, err
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	deleted, err := job.refreshTokenRepo.DeleteExpired(ctx, job.now())
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot delete expired refresh tokens: %v", err)
	}
	report.DeletedRefreshTokens = deleted

	if err := ctx.Err(); err != nil {
		return report, err
	}

	report.SweptStates = job.states.Sweep(ctx)
	return report, nil
}

func (job *ReconciliationCronJob) refreshProviderTokens(ctx context.Context, report *ReconciliationReport) error {
	now := job.now()
	due, err := job.providerTokenRepo.GetDue(ctx, now.Add(xcontext.Configs(ctx).Cron.ProviderTokenLeadTime))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get due provider tokens: %v", err)
		return nil
	}

	limit := xcontext.Configs(ctx).Cron.MaxConcurrency
	if limit <= 0 {
		limit = 1
	}

	g := errgroup.Group{}
	g.SetLimit(limit)

	results := make([]*entity.ProviderToken, len(due))
	attempted := 0
	for i := range due {
		record := due[i]
		provider, ok := job.providers.Get(record.Provider)
		if !ok {
			xcontext.Logger(ctx).Warnf("Skip provider token of user %s: unknown provider %s",
				record.UserID, record.Provider)
			report.SkippedProviderTokens++
			prometheus.ProviderTokenRefreshTotal.WithLabelValues(record.Provider, "skipped").Inc()
			continue
		}

		if record.RefreshToken == "" {
			xcontext.Logger(ctx).Debugf("Skip provider token of user %s on %s: no refresh token",
				record.UserID, record.Provider)
			report.SkippedProviderTokens++
			continue
		}

		if ctx.Err() != nil {
			break
		}

		attempted++
		i := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			tokens, err := provider.ExchangeRefreshToken(ctx, record.RefreshToken)
			if err != nil {
				xcontext.Logger(ctx).Warnf("Cannot refresh %s token of user %s: %v",
					record.Provider, record.UserID, err)
				prometheus.ProviderTokenRefreshTotal.WithLabelValues(record.Provider, "failed").Inc()
				return nil
			}

			record.AccessToken = tokens.AccessToken
			if tokens.RefreshToken != "" {
				record.RefreshToken = tokens.RefreshToken
			}
			if len(tokens.Scopes) > 0 {
				record.Scopes = tokens.Scopes
			}
			record.ExpiresAt = domain.ProviderTokenExpiry(job.now(), tokens.ExpiresIn)

			results[i] = &record
			prometheus.ProviderTokenRefreshTotal.WithLabelValues(record.Provider, "refreshed").Inc()
			return nil
		})
	}

	// Results are collected even when cancelled so that refreshed tokens
	// are not lost.
	_ = g.Wait()

	refreshed := make([]entity.ProviderToken, 0, len(results))
	for _, r := range results {
		if r != nil {
			refreshed = append(refreshed, *r)
		}
	}

	report.RefreshedProviderTokens = len(refreshed)
	report.FailedProviderTokens = attempted - len(refreshed)

	// The save is not bound to ctx, provider refresh tokens may already
	// have been rotated.
	if err := job.providerTokenRepo.SaveAll(context.WithoutCancel(ctx), refreshed); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot save refreshed provider tokens: %v", err)
		report.FailedProviderTokens += len(refreshed)
		report.RefreshedProviderTokens = 0
	}

	return ctx.Err()
}
