package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/questx-lab/authserver/api"
	"github.com/questx-lab/authserver/config"
	"github.com/questx-lab/authserver/internal/domain/cron"
	"github.com/questx-lab/authserver/internal/model"
	"github.com/questx-lab/authserver/pkg/prometheus"
	"github.com/questx-lab/authserver/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

const socialLoginPath = "/auth/social/"

func (s *srv) startApi(*cli.Context) error {
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
	if err := s.loadDomains(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(s.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Authorization states kept in memory are only visible to this process.
	if xcontext.Configs(ctx).Auth.StateBackend == config.MemoryStateBackend {
		manager := cron.NewCronJobManager()
		manager.Register(cron.NewStateSweepCronJob(s.states, xcontext.Configs(ctx).Cron.ReconcileInterval))
		go manager.Start(ctx)
	}

	cfg := xcontext.Configs(ctx)
	httpSrv := &http.Server{
		Addr:              cfg.ApiServer.Address(),
		Handler:           s.loadRouter().Handler(cfg.Cors),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			xcontext.Logger(s.ctx).Errorf("Cannot shutdown server: %v", err)
		}
	}()

	xcontext.Logger(s.ctx).Infof("Starting server on %s", httpSrv.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		xcontext.Logger(s.ctx).Errorf("An error occurs when running server: %v", err)
		return err
	}
	xcontext.Logger(s.ctx).Infof("Server stopped")

	return nil
}

func (s *srv) loadRouter() *api.Router {
	base := s.ctx
	router := api.NewRouter(func(ctx context.Context) context.Context {
		ctx = xcontext.WithConfigs(ctx, xcontext.Configs(base))
		ctx = xcontext.WithLogger(ctx, xcontext.Logger(base))
		ctx = xcontext.WithHTTPClient(ctx, xcontext.HTTPClient(base))
		return xcontext.WithDB(ctx, xcontext.DB(base))
	})

	// Local auth API
	(&api.Endpoint[model.RegisterRequest, model.RegisterResponse]{
		Method: http.MethodPost,
		Path:   "/auth/local/register",
		Handle: s.localAuthDomain.Register,
	}).Register(router)
	(&api.Endpoint[model.LoginRequest, model.LoginResponse]{
		Method: http.MethodPost,
		Path:   "/auth/local/login",
		Handle: s.localAuthDomain.Login,
	}).Register(router)
	(&api.Endpoint[model.RefreshTokenRequest, model.RefreshTokenResponse]{
		Method: http.MethodPost,
		Path:   "/auth/local/refresh",
		Handle: s.localAuthDomain.RefreshAccessToken,
	}).Register(router)

	// Social auth API
	(&api.Endpoint[model.InitializeLoginFlowRequest, model.InitializeLoginFlowResponse]{
		Method: http.MethodPost,
		Path:   "/auth/social/init",
		Handle: s.socialAuthDomain.InitializeLoginFlow,
	}).Register(router)
	(&api.Endpoint[model.GoogleLoginRequest, model.SocialLoginResponse]{
		Method: http.MethodPost,
		Path:   "/auth/social/google",
		Handle: s.socialAuthDomain.GoogleLogin,
	}).Register(router)
	(&api.Endpoint[model.RefreshTokenRequest, model.RefreshTokenResponse]{
		Method: http.MethodPost,
		Path:   "/auth/social/refresh",
		Handle: s.socialAuthDomain.RefreshAccessToken,
	}).Register(router)
	(&api.Endpoint[model.ProviderLoginRequest, model.SocialLoginResponse]{
		Method: http.MethodPost,
		Path:   socialLoginPath,
		Handle: s.socialAuthDomain.ProviderLogin,
		Bind: func(r *http.Request, req *model.ProviderLoginRequest) {
			req.Provider = strings.TrimPrefix(r.URL.Path, socialLoginPath)
		},
	}).Register(router)

	// User API
	(&api.Endpoint[model.GetMeRequest, model.GetMeResponse]{
		Method: http.MethodGet,
		Path:   "/auth/me",
		Before: []api.Middleware{api.Authenticate(s.issuer)},
		Handle: s.userDomain.GetMe,
	}).Register(router)

	router.Handle("/metrics", prometheus.NewHandler())

	return router
}
