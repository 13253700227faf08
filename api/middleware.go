package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/questx-lab/authserver/pkg/authenticator"
	"github.com/questx-lab/authserver/pkg/errorx"
	"github.com/questx-lab/authserver/pkg/prometheus"
	"github.com/questx-lab/authserver/pkg/xcontext"
)

// Authenticate verifies the bearer access token and stores its subject as
// the request user id.
func Authenticate(issuer *authenticator.CredentialIssuer) Middleware {
	return func(ctx context.Context, r *http.Request) (context.Context, error) {
		auth, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
		if !found || auth != "Bearer" || token == "" {
			return ctx, errorx.New(errorx.Unauthenticated, "You need to authenticate before")
		}

		claims, err := issuer.Verify(token)
		if err != nil {
			xcontext.Logger(ctx).Debugf("Invalid access token: %v", err)
			return ctx, errorx.New(errorx.Unauthenticated, "Invalid access token")
		}

		return xcontext.WithRequestUserID(ctx, claims.Subject), nil
	}
}

func logRequest(ctx context.Context, r *http.Request, err error) {
	if err == nil {
		xcontext.Logger(ctx).Infof("%s | %s", r.Method, r.URL.Path)
		return
	}

	var errx errorx.Error
	if errors.As(err, &errx) {
		xcontext.Logger(ctx).Warnf("%s | %s | %d", r.Method, r.URL.Path, errx.Code)
	} else {
		xcontext.Logger(ctx).Errorf("%s | %s | %v", r.Method, r.URL.Path, err)
	}
}

// observeRequest records the request under its registered path, so path
// parameters do not multiply the label values.
func observeRequest(path string, start time.Time, err error) {
	code := 0
	if err != nil {
		var errx errorx.Error
		if errors.As(err, &errx) {
			code = int(errx.Code)
		} else {
			code = -1
		}
	}

	prometheus.HTTPRequestTotal.WithLabelValues(path, fmt.Sprint(code)).Inc()
	prometheus.HTTPRequestDurationSeconds.WithLabelValues(path, fmt.Sprint(code)).
		Observe(time.Since(start).Seconds())
}
