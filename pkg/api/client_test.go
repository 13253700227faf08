package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/questx-lab/authserver/pkg/api"
	"github.com/stretchr/testify/require"
)

func Test_defaultClient_GET(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/users/me", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		require.Equal(t, "client", r.Header.Get("Client-Id"))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		w.Write([]byte(`{"data":{"id":"42"},"nonce":null}`))
	}))
	defer server.Close()

	resp, err := api.NewGenerator().New(server.URL, "/users/%s", "me").
		Header("Client-Id", "client").
		GET(context.Background(), api.OAuth2("Bearer", "tok"))
	require.NoError(t, err)
	require.True(t, resp.OK())

	body, ok := resp.Body.(api.JSON)
	require.True(t, ok)

	id, err := body.GetString("data.id")
	require.NoError(t, err)
	require.Equal(t, "42", id)

	nonce, err := body.GetString("nonce")
	require.NoError(t, err)
	require.Empty(t, nonce)
}

func Test_defaultClient_NonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	resp, err := api.NewGenerator().New(server.URL, "/users/%s", "me").
		GET(context.Background(), api.OAuth2("Bearer", "tok"))
	require.NoError(t, err)
	require.False(t, resp.OK())
	require.Nil(t, resp.Body)
	require.Equal(t, "upstream down", string(resp.RawBody))
}

func Test_JSON_Get(t *testing.T) {
	j := api.JSON{"data": map[string]any{"id": "42"}, "n": 1.5}

	id, err := j.GetString("data.id")
	require.NoError(t, err)
	require.Equal(t, "42", id)

	_, err = j.GetString("n")
	require.Error(t, err)

	_, err = j.GetString("missing")
	require.Error(t, err)
}
