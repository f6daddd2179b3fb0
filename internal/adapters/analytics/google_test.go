package analytics_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/forkadmin/internal/adapters/analytics"
	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/felixgeelhaar/forkadmin/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGoogle serves the token endpoint and the subset of analytics/v3 the
// adapter uses.
type fakeGoogle struct {
	mu       sync.Mutex
	accounts []map[string]any
	perPage  int
	starts   []string
	auth     []string
	dataArgs map[string]string
	failData bool
}

func (f *fakeGoogle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/token":
		_ = r.ParseForm()
		if r.PostForm.Get("code") == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","refresh_token":"rt-1","expires_in":3600}`))
	case strings.HasSuffix(r.URL.Path, "/management/accounts"):
		start, _ := strconv.Atoi(r.URL.Query().Get("start-index"))
		f.starts = append(f.starts, r.URL.Query().Get("start-index"))
		end := min(start-1+f.perPage, len(f.accounts))
		writeJSON(w, map[string]any{
			"items":        f.accounts[start-1 : end],
			"itemsPerPage": f.perPage,
			"totalResults": len(f.accounts),
		})
	case strings.HasSuffix(r.URL.Path, "/webproperties"):
		writeJSON(w, map[string]any{
			"items": []map[string]any{
				{"id": "UA-1-1", "name": "site", "accountId": "1", "internalWebPropertyId": "77", "websiteUrl": "https://fork.example", "profileCount": 2, "created": "2020-01-02T03:04:05.000Z"},
			},
			"itemsPerPage": 1000, "totalResults": 1,
		})
	case strings.HasSuffix(r.URL.Path, "/profiles"):
		writeJSON(w, map[string]any{
			"items":        []map[string]any{{"id": "9", "name": "All", "accountId": "1", "webPropertyId": "UA-1-1"}},
			"itemsPerPage": 1000, "totalResults": 1,
		})
	case strings.HasSuffix(r.URL.Path, "/data/ga"):
		if f.failData {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"denied"}}`))
			return
		}
		q := r.URL.Query()
		f.dataArgs = map[string]string{"ids": q.Get("ids"), "metrics": q.Get("metrics"), "dimensions": q.Get("dimensions"), "start-date": q.Get("start-date")}
		writeJSON(w, map[string]any{
			"columnHeaders": []map[string]any{
				{"name": "ga:date", "dataType": "STRING"},
				{"name": "ga:pageviews", "dataType": "INTEGER"},
				{"name": "ga:avgTimeOnPage", "dataType": "TIME"},
			},
			"rows":         [][]string{{"20240101", "12", "3.5"}, {"20240102", "7", "1"}},
			"itemsPerPage": 1000, "totalResults": 2,
		})
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

func newService(t *testing.T, fake *fakeGoogle, maxPages int) *analytics.Service {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return analytics.New(analytics.Options{
		Endpoint:    oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		APIEndpoint: srv.URL + "/",
		HTTPClient:  srv.Client(),
		MaxPages:    maxPages,
		PageSize:    2,
	})
}

func session() ports.AnalyticsSession {
	return ports.AnalyticsSession{
		AnalyticsCredentials: ports.AnalyticsCredentials{ClientID: "cid", ClientSecret: "sec", RedirectURL: "https://cms.example/cb"},
		Token:                `{"access_token":"at-1","token_type":"Bearer"}`,
	}
}

func accounts(n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, map[string]any{"id": strconv.Itoa(i), "name": "acct " + strconv.Itoa(i)})
	}
	return out
}

func TestAuthCodeURL(t *testing.T) {
	t.Parallel()

	svc := newService(t, &fakeGoogle{}, 0)
	u := svc.AuthCodeURL(session().AnalyticsCredentials)
	assert.Contains(t, u, "/auth?")
	assert.Contains(t, u, "client_id=cid")
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "analytics.readonly")
}

func TestExchangeCode(t *testing.T) {
	t.Parallel()

	svc := newService(t, &fakeGoogle{}, 0)
	tok, err := svc.ExchangeCode(context.Background(), session().AnalyticsCredentials, "good")
	require.NoError(t, err)

	var decoded oauth2.Token
	require.NoError(t, json.Unmarshal([]byte(tok), &decoded))
	assert.Equal(t, "at-1", decoded.AccessToken)
	assert.Equal(t, "rt-1", decoded.RefreshToken)

	_, err = svc.ExchangeCode(context.Background(), session().AnalyticsCredentials, "bad")
	assert.True(t, errors.Is(err, failure.ErrUpstreamFailure))
}

func TestAccounts_FollowsPages(t *testing.T) {
	t.Parallel()

	fake := &fakeGoogle{accounts: accounts(5), perPage: 2}
	svc := newService(t, fake, 10)

	var ids []string
	for a, err := range svc.Accounts(context.Background(), session()) {
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids)
	assert.Equal(t, []string{"1", "3", "5"}, fake.starts)
	assert.Contains(t, fake.auth, "Bearer at-1")
}

func TestAccounts_PageCap(t *testing.T) {
	t.Parallel()

	fake := &fakeGoogle{accounts: accounts(5), perPage: 2}
	svc := newService(t, fake, 2)

	var (
		ids     []string
		lastErr error
	)
	for a, err := range svc.Accounts(context.Background(), session()) {
		if err != nil {
			lastErr = err
			break
		}
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids)
	require.Error(t, lastErr)
	assert.True(t, errors.Is(lastErr, failure.ErrUpstreamFailure))
}

func TestAccounts_StopsEarly(t *testing.T) {
	t.Parallel()

	fake := &fakeGoogle{accounts: accounts(5), perPage: 2}
	svc := newService(t, fake, 10)

	for a, err := range svc.Accounts(context.Background(), session()) {
		require.NoError(t, err)
		assert.Equal(t, "1", a.ID)
		break
	}
	assert.Len(t, fake.starts, 1)
}

func TestWebPropertiesAndProfiles(t *testing.T) {
	t.Parallel()

	svc := newService(t, &fakeGoogle{}, 0)
	ctx := context.Background()

	for p, err := range svc.WebProperties(ctx, session()) {
		require.NoError(t, err)
		assert.Equal(t, "UA-1-1", p.ID)
		assert.Equal(t, int64(2), p.ProfilesCount)
		assert.Equal(t, "77", p.InternalID)
		assert.Equal(t, 2020, p.CreatedOn.Year())
	}
	for p, err := range svc.Profiles(ctx, session()) {
		require.NoError(t, err)
		assert.Equal(t, "9", p.ID)
		assert.Equal(t, "UA-1-1", p.WebPropertyID)
	}
}

func TestData_PrefixesAndCoerces(t *testing.T) {
	t.Parallel()

	fake := &fakeGoogle{}
	svc := newService(t, fake, 0)
	q := ports.AnalyticsQuery{
		ProfileID:  "9",
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Metrics:    []string{"pageviews", "ga:avgTimeOnPage"},
		Dimensions: []string{"date"},
	}

	var rows []ports.AnalyticsRow
	for row, err := range svc.Data(context.Background(), session(), q) {
		require.NoError(t, err)
		rows = append(rows, row)
	}

	require.Len(t, rows, 2)
	assert.Equal(t, "20240101", rows[0]["date"])
	assert.Equal(t, int64(12), rows[0]["pageviews"])
	assert.InDelta(t, 3.5, rows[0]["avgTimeOnPage"], 0.0001)
	assert.Equal(t, "ga:9", fake.dataArgs["ids"])
	assert.Equal(t, "ga:pageviews,ga:avgTimeOnPage", fake.dataArgs["metrics"])
	assert.Equal(t, "ga:date", fake.dataArgs["dimensions"])
	assert.Equal(t, "2024-01-01", fake.dataArgs["start-date"])
}

func TestData_UpstreamError(t *testing.T) {
	t.Parallel()

	svc := newService(t, &fakeGoogle{failData: true}, 0)
	for _, err := range svc.Data(context.Background(), session(), ports.AnalyticsQuery{ProfileID: "9", Metrics: []string{"pageviews"}}) {
		require.Error(t, err)
		assert.Equal(t, failure.CodeUpstreamFailure, failure.CodeOf(err))
	}
}

func TestData_BadToken(t *testing.T) {
	t.Parallel()

	svc := newService(t, &fakeGoogle{}, 0)
	s := session()
	s.Token = "not json"
	for _, err := range svc.Accounts(context.Background(), s) {
		assert.ErrorContains(t, err, "decode token")
	}
}

func TestPrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"ga:pageviews", "ga:visitors"}, analytics.Prefix([]string{"pageviews", " ga:visitors ", ""}))
}

func TestCoerce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dataType string
		value    string
		want     any
	}{
		{"INTEGER", "42", int64(42)},
		{"FLOAT", "0.25", 0.25},
		{"STRING", "20240101", "20240101"},
		{"CURRENCY", "9.99", "9.99"},
		{"INTEGER", "n/a", "n/a"},
	}
	for _, tt := range tests {
		t.Run(tt.dataType+"/"+tt.value, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, analytics.Coerce(tt.dataType, tt.value))
		})
	}
}
