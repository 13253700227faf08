package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/questx-lab/authserver/config"
	"github.com/questx-lab/authserver/pkg/authenticator"
	"github.com/questx-lab/authserver/pkg/errorx"
	"github.com/questx-lab/authserver/pkg/prometheus"
	"github.com/questx-lab/authserver/pkg/testutil"
	"github.com/questx-lab/authserver/pkg/xcontext"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type echoRequest struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Path  string `json:"-"`
}

type echoResponse struct {
	Name   string `json:"name"`
	Count  int    `json:"count"`
	Path   string `json:"path"`
	UserID string `json:"user_id"`
}

func echo(ctx context.Context, req *echoRequest) (*echoResponse, error) {
	switch req.Name {
	case "conflict":
		return nil, errorx.New(errorx.AlreadyExists, "Email address already in use")
	case "crash":
		return nil, errorx.Unknown
	}

	return &echoResponse{
		Name:   req.Name,
		Count:  req.Count,
		Path:   req.Path,
		UserID: xcontext.RequestUserID(ctx),
	}, nil
}

func newTestRouter(t *testing.T) (*Router, *authenticator.CredentialIssuer) {
	ctx := testutil.MockContextWithoutTables()
	issuer, err := authenticator.NewCredentialIssuer(xcontext.Configs(ctx).Auth)
	require.NoError(t, err)

	router := NewRouter(func(c context.Context) context.Context {
		c = xcontext.WithConfigs(c, xcontext.Configs(ctx))
		return xcontext.WithLogger(c, xcontext.Logger(ctx))
	})

	(&Endpoint[echoRequest, echoResponse]{
		Method: http.MethodPost,
		Path:   "/echo/",
		Handle: echo,
		Bind: func(r *http.Request, req *echoRequest) {
			req.Path = strings.TrimPrefix(r.URL.Path, "/echo/")
		},
	}).Register(router)

	(&Endpoint[echoRequest, echoResponse]{
		Method: http.MethodGet,
		Path:   "/me",
		Before: []Middleware{Authenticate(issuer)},
		Handle: echo,
	}).Register(router)

	return router, issuer
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response {
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	handler := router.Handler(config.CorsConfigs{})

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   int64
	}{
		{
			name:       "happy case",
			method:     http.MethodPost,
			path:       "/echo/spotify",
			body:       `{"name":"a","count":2}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "domain error",
			method:     http.MethodPost,
			path:       "/echo/spotify",
			body:       `{"name":"conflict"}`,
			wantStatus: http.StatusConflict,
			wantCode:   int64(errorx.AlreadyExists),
		},
		{
			name:       "internal error",
			method:     http.MethodPost,
			path:       "/echo/spotify",
			body:       `{"name":"crash"}`,
			wantStatus: http.StatusInternalServerError,
			wantCode:   int64(errorx.Unknown.Code),
		},
		{
			name:       "malformed body",
			method:     http.MethodPost,
			path:       "/echo/spotify",
			body:       `{"name":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   int64(errorx.BadRequest),
		},
		{
			name:       "wrong method",
			method:     http.MethodGet,
			path:       "/echo/spotify",
			wantStatus: http.StatusBadRequest,
			wantCode:   int64(errorx.BadRequest),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, rec.Code)
			resp := decode(t, rec)
			require.Equal(t, tt.wantCode, resp.Code)

			if tt.wantStatus == http.StatusOK {
				data := resp.Data.(map[string]any)
				require.Equal(t, "a", data["name"])
				require.Equal(t, float64(2), data["count"])
				require.Equal(t, "spotify", data["path"])
			} else {
				require.NotEmpty(t, resp.Error)
			}
		})
	}
}

func Test_Endpoint_Metrics(t *testing.T) {
	router, _ := newTestRouter(t)
	handler := router.Handler(config.CorsConfigs{})

	counter := prometheus.HTTPRequestTotal.WithLabelValues("/echo/", fmt.Sprint(int(errorx.AlreadyExists)))
	before := promtestutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/echo/x", strings.NewReader(`{"name":"conflict"}`)))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, before+1, promtestutil.ToFloat64(counter))
}

func TestAuthenticate(t *testing.T) {
	router, issuer := newTestRouter(t)
	handler := router.Handler(config.CorsConfigs{})

	credential, err := issuer.Issue(authenticator.Identity{UserID: "user-1", Email: "a@b.com"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me?name=b&count=3", nil)
	req.Header.Set("Authorization", "Bearer "+credential.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec).Data.(map[string]any)
	require.Equal(t, "user-1", data["user_id"])
	require.Equal(t, "b", data["name"])
	require.Equal(t, float64(3), data["count"])

	for _, header := range []string{"", "Bearer", "Bearer invalid", "Basic " + credential.AccessToken} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, header)
		require.Equal(t, int64(errorx.Unauthenticated), decode(t, rec).Code)
	}
}

func Test_Router_Cors(t *testing.T) {
	router, _ := newTestRouter(t)
	handler := router.Handler(config.CorsConfigs{Origins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/echo/spotify", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/echo/spotify", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
