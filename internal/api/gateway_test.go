// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagdeck/flagdeck/internal/api"
	"github.com/flagdeck/flagdeck/internal/api/apitest"
	"github.com/flagdeck/flagdeck/internal/observability"
	"github.com/flagdeck/flagdeck/pkg/errutil"
)

type staticToken string

func (s staticToken) Token() (string, bool) {
	return string(s), s != ""
}

func newGateway(t *testing.T, baseURL string, token string, opts ...api.Option) *api.Gateway {
	t.Helper()
	g, err := api.New(api.Config{BaseURL: baseURL, Timeout: 5 * time.Second}, staticToken(token), opts...)
	require.NoError(t, err)
	return g
}

// closeConn drops the connection without a response.
func closeConn(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	_ = conn.Close()
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		tokens  api.TokenSource
	}{
		{name: "nil token source", baseURL: "http://localhost:8000", tokens: nil},
		{name: "missing scheme", baseURL: "localhost:8000", tokens: staticToken("")},
		{name: "ftp scheme", baseURL: "ftp://example.com", tokens: staticToken("")},
		{name: "unparseable", baseURL: "http://[::1", tokens: staticToken("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := api.New(api.Config{BaseURL: tt.baseURL}, tt.tokens)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, api.CodeInvalidConfig)
		})
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	g, err := api.New(api.Config{BaseURL: "http://localhost:8000/"}, staticToken(""))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", g.BaseURL())
}

func TestGateway_AttachesBearerWhenAuthenticated(t *testing.T) {
	srv := apitest.NewServer(t)
	g := newGateway(t, srv.URL(), "abc")

	_ = g.Get(context.Background(), api.PathScoreboard, true, nil)
	_ = g.Get(context.Background(), api.PathScoreboard, false, nil)

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "Bearer abc", reqs[0].Authorization)
	assert.Empty(t, reqs[1].Authorization)
}

func TestGateway_NoTokenStillSendsRequest(t *testing.T) {
	srv := apitest.NewServer(t)
	g := newGateway(t, srv.URL(), "")

	_, err := g.CurrentUser(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, srv.Count(http.MethodGet, api.PathCurrent))
	assert.Empty(t, srv.Requests()[0].Authorization)
	assert.True(t, api.IsUnauthorized(err))
}

func TestGateway_RequestErrorDetail(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantDetail   string
		wantProvided bool
	}{
		{
			name:         "string detail",
			status:       http.StatusBadRequest,
			body:         `{"detail":"Incorrect flag"}`,
			wantDetail:   "Incorrect flag",
			wantProvided: true,
		},
		{
			name:         "validation list",
			status:       http.StatusUnprocessableEntity,
			body:         `{"detail":[{"msg":"field required"},{"msg":"value is not a valid integer"}]}`,
			wantDetail:   "field required; value is not a valid integer",
			wantProvided: true,
		},
		{
			name:       "no body",
			status:     http.StatusInternalServerError,
			body:       ``,
			wantDetail: "request failed: Internal Server Error",
		},
		{
			name:       "html body",
			status:     http.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
			wantDetail: "request failed: Bad Gateway",
		},
		{
			name:       "empty detail",
			status:     http.StatusBadRequest,
			body:       `{"detail":""}`,
			wantDetail: "request failed: Bad Request",
		},
		{
			name:       "unknown status",
			status:     599,
			body:       `{}`,
			wantDetail: "request failed: status 599",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := apitest.NewServer(t)
			srv.Fail(http.MethodPost, api.PathSubmit, tt.status, tt.body)
			g := newGateway(t, srv.URL(), "tok")

			_, err := g.SubmitFlag(context.Background(), 1, "flag{x}")

			require.Error(t, err)
			errutil.AssertErrorFields(t, err, api.CodeRequestFailed, map[string]any{
				"method": http.MethodPost,
				"path":   api.PathSubmit,
				"status": tt.status,
			})
			reqErr, ok := api.AsRequestError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, reqErr.Status)
			assert.Equal(t, tt.wantDetail, reqErr.Detail)
			assert.Equal(t, tt.wantProvided, reqErr.Provided)
			_, isNet := api.AsNetworkError(err)
			assert.False(t, isNet)
		})
	}
}

func TestGateway_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	g := newGateway(t, baseURL, "tok")
	_, err := g.ListChallenges(context.Background())

	require.Error(t, err)
	errutil.AssertErrorFields(t, err, api.CodeNetworkFailed, map[string]any{
		"method": http.MethodGet,
		"path":   api.PathChallenges,
	})
	netErr, ok := api.AsNetworkError(err)
	require.True(t, ok)
	assert.Equal(t, http.MethodGet, netErr.Method)
	assert.Equal(t, api.PathChallenges, netErr.Path)
	_, isReq := api.AsRequestError(err)
	assert.False(t, isReq)
}

func TestGateway_TolerantDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	g := newGateway(t, srv.URL, "tok")
	var out map[string]any
	require.NoError(t, g.Delete(context.Background(), "/challenges/1", true, &out))
	require.NoError(t, g.Get(context.Background(), "/anything", true, nil))
	assert.Nil(t, out)
}

func TestGateway_MalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	g := newGateway(t, srv.URL, "tok")
	_, err := g.CurrentUser(context.Background())

	require.Error(t, err)
	errutil.AssertErrorFields(t, err, api.CodeRequestFailed, map[string]any{
		"method": http.MethodGet,
		"path":   api.PathCurrent,
		"status": http.StatusOK,
	})
}

func TestGateway_RetriesGetOnTransportFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			closeConn(w)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g, err := api.New(api.Config{BaseURL: srv.URL, Retries: 3}, staticToken("tok"))
	require.NoError(t, err)

	challenges, err := g.ListChallenges(context.Background())
	require.NoError(t, err)
	assert.Empty(t, challenges)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGateway_NeverRetriesPost(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		closeConn(w)
	}))
	defer srv.Close()

	g, err := api.New(api.Config{BaseURL: srv.URL, Retries: 3}, staticToken("tok"))
	require.NoError(t, err)

	_, err = g.SubmitFlag(context.Background(), 1, "flag")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGateway_DoesNotRetryRequestErrors(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.Fail(http.MethodGet, api.PathScoreboard, http.StatusInternalServerError, `{"detail":"boom"}`)

	g, err := api.New(api.Config{BaseURL: srv.URL(), Retries: 3}, staticToken("tok"))
	require.NoError(t, err)

	_, err = g.Scoreboard(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, srv.Count(http.MethodGet, api.PathScoreboard))
}

func TestGateway_Timeout(t *testing.T) {
	srv := apitest.NewServer(t)
	release := srv.Hold(http.MethodGet, api.PathScoreboard)
	defer release()

	g, err := api.New(api.Config{BaseURL: srv.URL(), Timeout: 50 * time.Millisecond}, staticToken("tok"))
	require.NoError(t, err)

	_, err = g.Scoreboard(context.Background())
	require.Error(t, err)
	_, ok := api.AsNetworkError(err)
	assert.True(t, ok)
}

func TestGateway_RecordsMetrics(t *testing.T) {
	srv := apitest.NewServer(t)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	g := newGateway(t, srv.URL(), "", api.WithMetrics(metrics))

	_, _ = g.Scoreboard(context.Background())
	_, _ = g.CurrentUser(context.Background())

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", "401")), 0)
}

func TestGateway_PostFormEncodes(t *testing.T) {
	srv := apitest.NewServer(t)
	g := newGateway(t, srv.URL(), "")

	form := url.Values{}
	form.Set("username", "alice")
	form.Set("password", "p&ss word")
	_ = g.PostForm(context.Background(), api.PathToken, form, false, nil)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "application/x-www-form-urlencoded", reqs[0].ContentType)
	assert.Equal(t, "p&ss word", apitest.FormValue(reqs[0], "password"))
}
