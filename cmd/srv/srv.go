package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/questx-lab/authserver/config"
	"github.com/questx-lab/authserver/internal/domain"
	"github.com/questx-lab/authserver/internal/repository"
	"github.com/questx-lab/authserver/migration"
	"github.com/questx-lab/authserver/pkg/authenticator"
	"github.com/questx-lab/authserver/pkg/logger"
	"github.com/questx-lab/authserver/pkg/oauthstate"
	"github.com/questx-lab/authserver/pkg/password"
	"github.com/questx-lab/authserver/pkg/validator"
	"github.com/questx-lab/authserver/pkg/xcontext"
	"github.com/questx-lab/authserver/pkg/xredis"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type srv struct {
	app *cli.App
	ctx context.Context

	userRepo          repository.UserRepository
	refreshTokenRepo  repository.RefreshTokenRepository
	providerTokenRepo repository.ProviderTokenRepository

	states    oauthstate.Registry
	providers *authenticator.Registry
	issuer    *authenticator.CredentialIssuer

	localAuthDomain  domain.LocalAuthDomain
	socialAuthDomain domain.SocialAuthDomain
	userDomain       domain.UserDomain
}

func (s *srv) loadConfig(cctx *cli.Context) error {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	s.ctx = xcontext.WithConfigs(s.ctx, cfg)
	s.ctx = xcontext.WithLogger(s.ctx, logger.NewLogger(level))
	s.ctx = xcontext.WithHTTPClient(s.ctx, &http.Client{Timeout: 30 * time.Second})
	return nil
}

func (s *srv) newDatabase() (*gorm.DB, error) {
	cfg := xcontext.Configs(s.ctx).Database

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.New(mysql.Config{
			DSN:                       cfg.ConnectionString(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		})
	case "sqlite":
		dialector = sqlite.Open(cfg.File)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		// sqlite allows a single writer.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func (s *srv) loadDatabase() error {
	db, err := s.newDatabase()
	if err != nil {
		return err
	}

	s.ctx = xcontext.WithDB(s.ctx, db)
	return migration.Migrate(s.ctx)
}

func (s *srv) loadRepos() {
	s.userRepo = repository.NewUserRepository()
	s.refreshTokenRepo = repository.NewRefreshTokenRepository()
	s.providerTokenRepo = repository.NewProviderTokenRepository()
}

func (s *srv) loadStateRegistry() error {
	cfg := xcontext.Configs(s.ctx).Auth
	switch cfg.StateBackend {
	case config.RedisStateBackend:
		redisClient, err := xredis.NewClient(s.ctx)
		if err != nil {
			return err
		}
		s.states = oauthstate.NewRedisRegistry(redisClient, cfg.StateTimeout)
	default:
		s.states = oauthstate.NewMemoryRegistry(cfg.StateTimeout)
	}

	return nil
}

func (s *srv) loadProviders() error {
	var err error
	s.providers, err = authenticator.NewRegistryFromConfig(s.ctx, xcontext.Configs(s.ctx).Auth, s.states)
	if err != nil {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Enabled auth providers: %v", s.providers.Names())
	return nil
}

func (s *srv) loadDomains() error {
	cfg := xcontext.Configs(s.ctx).Auth

	var err error
	s.issuer, err = authenticator.NewCredentialIssuer(cfg)
	if err != nil {
		return err
	}

	hasher, err := password.NewArgon2Hasher(password.DefaultConfig())
	if err != nil {
		return err
	}

	s.localAuthDomain = domain.NewLocalAuthDomain(
		s.userRepo, s.refreshTokenRepo, s.issuer, hasher, validator.NewPasswordPolicy(cfg.Password))
	s.socialAuthDomain = domain.NewSocialAuthDomain(
		s.userRepo, s.refreshTokenRepo, s.providerTokenRepo, s.issuer, s.providers, s.states)
	s.userDomain = domain.NewUserDomain(s.userRepo)
	return nil
}
