package domain

import (
	"sync"
	"testing"
	"time"

	"github.com/questx-lab/authserver/internal/entity"
	"github.com/questx-lab/authserver/internal/model"
	"github.com/questx-lab/authserver/pkg/errorx"
	"github.com/questx-lab/authserver/pkg/prometheus"
	"github.com/questx-lab/authserver/pkg/testutil"
	"github.com/questx-lab/authserver/pkg/xcontext"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func requireCode(t *testing.T, err error, code errorx.Code) {
	t.Helper()

	var errx errorx.Error
	require.ErrorAs(t, err, &errx)
	require.Equal(t, code, errx.Code)
}

func Test_localAuthDomain_Register(t *testing.T) {
	tests := []struct {
		name    string
		req     *model.RegisterRequest
		wantErr string
	}{
		{
			name: "happy case",
			req:  &model.RegisterRequest{Name: "A", Email: "a@b.com", Password: "Abc12345!"},
		},
		{
			name:    "empty name",
			req:     &model.RegisterRequest{Name: " ", Email: "a@b.com", Password: "Abc12345!"},
			wantErr: "One or more fields are empty",
		},
		{
			name:    "invalid email",
			req:     &model.RegisterRequest{Name: "A", Email: "a@", Password: "Abc12345!"},
			wantErr: "The email address is invalid.",
		},
		{
			name:    "short password",
			req:     &model.RegisterRequest{Name: "A", Email: "a@b.com", Password: "Ab1!"},
			wantErr: "The password needs to consist of at least 8 characters.",
		},
		{
			name:    "password without uppercase",
			req:     &model.RegisterRequest{Name: "A", Email: "a@b.com", Password: "abc12345!"},
			wantErr: "The password needs to have at least 1 capital letter.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testutil.MockContext()
			d := newTestLocalAuthDomain(t, ctx)

			_, err := d.Register(ctx, tt.req)
			if tt.wantErr != "" {
				requireCode(t, err, errorx.FailedPrecondition)
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)

			user, err := d.userRepo.GetByEmail(ctx, tt.req.Email)
			require.NoError(t, err)
			require.Equal(t, entity.LocalAuth, user.AuthKind)
			require.NotEqual(t, tt.req.Password, user.PasswordHash)
			require.NotEmpty(t, user.PasswordSalt)
		})
	}
}

func Test_localAuthDomain_Register_Duplicate(t *testing.T) {
	ctx := testutil.MockContext()
	d := newTestLocalAuthDomain(t, ctx)

	req := &model.RegisterRequest{Name: "A", Email: "a@b.com", Password: "Abc12345!"}
	_, err := d.Register(ctx, req)
	require.NoError(t, err)

	_, err = d.Register(ctx, req)
	requireCode(t, err, errorx.AlreadyExists)
}

func Test_localAuthDomain_Login(t *testing.T) {
	ctx := testutil.MockContext()
	d := newTestLocalAuthDomain(t, ctx)

	_, err := d.Register(ctx, &model.RegisterRequest{Name: "A", Email: "a@b.com", Password: "Abc12345!"})
	require.NoError(t, err)

	resp, err := d.Login(ctx, &model.LoginRequest{Email: "a@b.com", Password: "Abc12345!"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Credential.AccessToken)
	require.NotEmpty(t, resp.Credential.RefreshToken)
	require.True(t, resp.Credential.ExpiresAt.After(time.Now()))

	claims, err := d.session.issuer.Verify(resp.Credential.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "a@b.com", claims.Email)

	_, err = d.Login(ctx, &model.LoginRequest{Email: "a@b.com", Password: "Abc12345?"})
	requireCode(t, err, errorx.Unauthenticated)
	require.ErrorContains(t, err, "Invalid username or password")

	_, err = d.Login(ctx, &model.LoginRequest{Email: "c@d.com", Password: "Abc12345!"})
	requireCode(t, err, errorx.Unauthenticated)

	_, err = d.Login(ctx, &model.LoginRequest{Email: "a@b.com"})
	requireCode(t, err, errorx.FailedPrecondition)
}

func Test_localAuthDomain_Login_SocialUser(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx, time.Now().Add(time.Hour))
	d := newTestLocalAuthDomain(t, ctx)

	_, err := d.Login(ctx, &model.LoginRequest{Email: testutil.SocialUser.Email, Password: "Abc12345!"})
	requireCode(t, err, errorx.Unauthenticated)
}

func Test_localAuthDomain_RefreshAccessToken_Rotation(t *testing.T) {
	ctx := testutil.MockContext()
	d := newTestLocalAuthDomain(t, ctx)

	_, err := d.Register(ctx, &model.RegisterRequest{Name: "A", Email: "a@b.com", Password: "Abc12345!"})
	require.NoError(t, err)

	login, err := d.Login(ctx, &model.LoginRequest{Email: "a@b.com", Password: "Abc12345!"})
	require.NoError(t, err)
	t1 := login.Credential.RefreshToken

	refreshed, err := d.RefreshAccessToken(ctx, &model.RefreshTokenRequest{RefreshToken: t1})
	require.NoError(t, err)
	t2 := refreshed.Credential.RefreshToken
	require.NotEqual(t, t1, t2)
	require.NotEqual(t, login.Credential.AccessToken, refreshed.Credential.AccessToken)

	// Replaying t1 is a breach and revokes the whole session.
	breaches := promtestutil.ToFloat64(prometheus.RefreshTotal.WithLabelValues("local", "breach"))
	_, err = d.RefreshAccessToken(ctx, &model.RefreshTokenRequest{RefreshToken: t1})
	require.Equal(t, errBreachDetected, err)
	require.Equal(t, breaches+1, promtestutil.ToFloat64(prometheus.RefreshTotal.WithLabelValues("local", "breach")))

	_, err = d.RefreshAccessToken(ctx, &model.RefreshTokenRequest{RefreshToken: t2})
	require.Equal(t, errInvalidRefreshToken, err)

	var count int64
	require.NoError(t, xcontext.DB(ctx).Model(&entity.RefreshToken{}).Count(&count).Error)
	require.Zero(t, count)
}

func Test_localAuthDomain_RefreshAccessToken_Invalid(t *testing.T) {
	ctx := testutil.MockContext()
	d := newTestLocalAuthDomain(t, ctx)

	_, err := d.RefreshAccessToken(ctx, &model.RefreshTokenRequest{})
	requireCode(t, err, errorx.Unauthenticated)

	_, err = d.RefreshAccessToken(ctx, &model.RefreshTokenRequest{RefreshToken: "unknown"})
	require.Equal(t, errInvalidRefreshToken, err)
}

func Test_localAuthDomain_RefreshAccessToken_ExpiryDominates(t *testing.T) {
	ctx := testutil.MockContext()
	d := newTestLocalAuthDomain(t, ctx)

	_, err := d.Register(ctx, &model.RegisterRequest{Name: "A", Email: "a@b.com", Password: "Abc12345!"})
	require.NoError(t, err)

	login, err := d.Login(ctx, &model.LoginRequest{Email: "a@b.com", Password: "Abc12345!"})
	require.NoError(t, err)
	t1 := login.Credential.RefreshToken

	_, err = d.RefreshAccessToken(ctx, &model.RefreshTokenRequest{RefreshToken: t1})
	require.NoError(t, err)

	// t1 now sits in the previous slot but the session has expired, expiry
	// is reported instead of a breach.
	d.session.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = d.RefreshAccessToken(ctx, &model.RefreshTokenRequest{RefreshToken: t1})
	require.Equal(t, errExpiredRefreshToken, err)
	requireCode(t, err, errorx.Unauthenticated)

	var count int64
	require.NoError(t, xcontext.DB(ctx).Model(&entity.RefreshToken{}).Count(&count).Error)
	require.Zero(t, count)
}

func Test_localAuthDomain_RefreshAccessToken_Concurrent(t *testing.T) {
	ctx := testutil.MockContext()
	d := newTestLocalAuthDomain(t, ctx)

	_, err := d.Register(ctx, &model.RegisterRequest{Name: "A", Email: "a@b.com", Password: "Abc12345!"})
	require.NoError(t, err)

	login, err := d.Login(ctx, &model.LoginRequest{Email: "a@b.com", Password: "Abc12345!"})
	require.NoError(t, err)

	const n = 8
	var (
		wg        sync.WaitGroup
		mutex     sync.Mutex
		successes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.RefreshAccessToken(ctx, &model.RefreshTokenRequest{
				RefreshToken: login.Credential.RefreshToken,
			})
			if err == nil {
				mutex.Lock()
				successes++
				mutex.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
}

func Test_localAuthDomain_RefreshAccessToken_DeletedUser(t *testing.T) {
	ctx := testutil.MockContext()
	d := newTestLocalAuthDomain(t, ctx)

	_, err := d.Register(ctx, &model.RegisterRequest{Name: "A", Email: "a@b.com", Password: "Abc12345!"})
	require.NoError(t, err)

	login, err := d.Login(ctx, &model.LoginRequest{Email: "a@b.com", Password: "Abc12345!"})
	require.NoError(t, err)

	user, err := d.userRepo.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.NoError(t, xcontext.DB(ctx).Delete(user).Error)

	_, err = d.RefreshAccessToken(ctx, &model.RefreshTokenRequest{RefreshToken: login.Credential.RefreshToken})
	require.Equal(t, errInvalidRefreshToken, err)
}
