// Package analytics connects the analytics module to the Google Analytics
// management and reporting API.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/felixgeelhaar/forkadmin/internal/ports"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gaapi "google.golang.org/api/analytics/v3"
	"google.golang.org/api/option"
)

// DefaultMaxPages bounds every listing.
const DefaultMaxPages = 50

// DefaultPageSize is requested from the management API.
const DefaultPageSize = 1000

const dateLayout = "2006-01-02"

// Options configures a Service. Zero values select Google's endpoints.
type Options struct {
	// Endpoint overrides the OAuth endpoint.
	Endpoint oauth2.Endpoint
	// APIEndpoint overrides the analytics API base URL.
	APIEndpoint string
	// HTTPClient is the base transport for OAuth and API calls.
	HTTPClient *http.Client
	MaxPages   int
	PageSize   int64
	Logger     ports.Logger
}

// Service implements ports.AnalyticsService over analytics/v3.
type Service struct {
	endpoint    oauth2.Endpoint
	apiEndpoint string
	httpClient  *http.Client
	maxPages    int
	pageSize    int64
	logger      ports.Logger
}

// New creates a Service.
func New(opts Options) *Service {
	s := &Service{
		endpoint:    opts.Endpoint,
		apiEndpoint: opts.APIEndpoint,
		httpClient:  opts.HTTPClient,
		maxPages:    opts.MaxPages,
		pageSize:    opts.PageSize,
		logger:      opts.Logger,
	}
	if s.endpoint.AuthURL == "" {
		s.endpoint = google.Endpoint
	}
	if s.maxPages <= 0 {
		s.maxPages = DefaultMaxPages
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	return s
}

// AuthCodeURL returns the consent page for creds with offline access.
func (s *Service) AuthCodeURL(creds ports.AnalyticsCredentials) string {
	return s.config(creds).AuthCodeURL("forkadmin", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades an authorization code for a token serialized as JSON.
func (s *Service) ExchangeCode(ctx context.Context, creds ports.AnalyticsCredentials, code string) (string, error) {
	tok, err := s.config(creds).Exchange(s.clientContext(ctx), code)
	if err != nil {
		return "", failure.Upstream("exchange authorization code", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return string(data), nil
}

// Accounts lists every account visible to the session.
func (s *Service) Accounts(ctx context.Context, session ports.AnalyticsSession) iter.Seq2[ports.AnalyticsAccount, error] {
	return paginate(ctx, s, session, "list accounts", func(api *gaapi.Service, start int64) ([]ports.AnalyticsAccount, int64, int64, error) {
		resp, err := api.Management.Accounts.List().StartIndex(start).MaxResults(s.pageSize).Context(ctx).Do()
		if err != nil {
			return nil, 0, 0, err
		}
		items := make([]ports.AnalyticsAccount, 0, len(resp.Items))
		for _, a := range resp.Items {
			items = append(items, ports.AnalyticsAccount{
				ID:        a.Id,
				Name:      a.Name,
				CreatedOn: parseTime(a.Created),
				UpdatedOn: parseTime(a.Updated),
			})
		}
		return items, resp.ItemsPerPage, resp.TotalResults, nil
	})
}

// WebProperties lists the web properties of every account.
func (s *Service) WebProperties(ctx context.Context, session ports.AnalyticsSession) iter.Seq2[ports.AnalyticsWebProperty, error] {
	return paginate(ctx, s, session, "list web properties", func(api *gaapi.Service, start int64) ([]ports.AnalyticsWebProperty, int64, int64, error) {
		resp, err := api.Management.Webproperties.List("~all").StartIndex(start).MaxResults(s.pageSize).Context(ctx).Do()
		if err != nil {
			return nil, 0, 0, err
		}
		items := make([]ports.AnalyticsWebProperty, 0, len(resp.Items))
		for _, p := range resp.Items {
			items = append(items, ports.AnalyticsWebProperty{
				ID:            p.Id,
				Name:          p.Name,
				AccountID:     p.AccountId,
				InternalID:    p.InternalWebPropertyId,
				WebsiteURL:    p.WebsiteUrl,
				ProfilesCount: p.ProfileCount,
				CreatedOn:     parseTime(p.Created),
				UpdatedOn:     parseTime(p.Updated),
			})
		}
		return items, resp.ItemsPerPage, resp.TotalResults, nil
	})
}

// Profiles lists the profiles of every web property.
func (s *Service) Profiles(ctx context.Context, session ports.AnalyticsSession) iter.Seq2[ports.AnalyticsProfile, error] {
	return paginate(ctx, s, session, "list profiles", func(api *gaapi.Service, start int64) ([]ports.AnalyticsProfile, int64, int64, error) {
		resp, err := api.Management.Profiles.List("~all", "~all").StartIndex(start).MaxResults(s.pageSize).Context(ctx).Do()
		if err != nil {
			return nil, 0, 0, err
		}
		items := make([]ports.AnalyticsProfile, 0, len(resp.Items))
		for _, p := range resp.Items {
			items = append(items, ports.AnalyticsProfile{
				ID:            p.Id,
				Name:          p.Name,
				AccountID:     p.AccountId,
				WebPropertyID: p.WebPropertyId,
				CreatedOn:     parseTime(p.Created),
				UpdatedOn:     parseTime(p.Updated),
			})
		}
		return items, resp.ItemsPerPage, resp.TotalResults, nil
	})
}

// Data runs a core reporting query. Row keys are column names without the
// "ga:" prefix and values are coerced by column data type.
func (s *Service) Data(ctx context.Context, session ports.AnalyticsSession, q ports.AnalyticsQuery) iter.Seq2[ports.AnalyticsRow, error] {
	metrics := strings.Join(Prefix(q.Metrics), ",")
	dimensions := strings.Join(Prefix(q.Dimensions), ",")

	return paginate(ctx, s, session, "fetch report data", func(api *gaapi.Service, start int64) ([]ports.AnalyticsRow, int64, int64, error) {
		call := api.Data.Ga.Get("ga:"+q.ProfileID, q.Start.Format(dateLayout), q.End.Format(dateLayout), metrics).
			StartIndex(start).
			MaxResults(s.pageSize).
			Context(ctx)
		if dimensions != "" {
			call = call.Dimensions(dimensions)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, 0, 0, err
		}
		rows := make([]ports.AnalyticsRow, 0, len(resp.Rows))
		for _, raw := range resp.Rows {
			row := make(ports.AnalyticsRow, len(resp.ColumnHeaders))
			for i, h := range resp.ColumnHeaders {
				if i >= len(raw) {
					break
				}
				row[strings.TrimPrefix(h.Name, "ga:")] = Coerce(h.DataType, raw[i])
			}
			rows = append(rows, row)
		}
		return rows, resp.ItemsPerPage, resp.TotalResults, nil
	})
}

type fetchFunc[T any] func(api *gaapi.Service, start int64) (items []T, perPage, total int64, err error)

// paginate pulls pages while start+perPage <= total. Reaching maxPages
// before the listing ends is an upstream failure.
func paginate[T any](ctx context.Context, s *Service, session ports.AnalyticsSession, op string, fetch fetchFunc[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		api, err := s.api(ctx, session)
		if err != nil {
			yield(zero, err)
			return
		}

		start := int64(1)
		for page := 0; ; page++ {
			if page >= s.maxPages {
				yield(zero, failure.Upstream(op, fmt.Errorf("more than %d pages", s.maxPages)))
				return
			}
			items, perPage, total, err := fetch(api, start)
			if err != nil {
				yield(zero, failure.Upstream(op, err))
				return
			}
			if s.logger != nil {
				s.logger.Debug(ctx, "analytics page fetched",
					ports.F("op", op), ports.F("start", start), ports.F("items", len(items)), ports.F("total", total))
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			if perPage <= 0 || start+perPage > total {
				return
			}
			start += perPage
		}
	}
}

func (s *Service) api(ctx context.Context, session ports.AnalyticsSession) (*gaapi.Service, error) {
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(session.Token), &tok); err != nil {
		return nil, failure.Upstream("decode token", err)
	}
	ctx = s.clientContext(ctx)
	opts := []option.ClientOption{option.WithHTTPClient(s.config(session.AnalyticsCredentials).Client(ctx, &tok))}
	if s.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(s.apiEndpoint))
	}
	api, err := gaapi.NewService(ctx, opts...)
	if err != nil {
		return nil, failure.Upstream("create analytics client", err)
	}
	return api, nil
}

func (s *Service) config(creds ports.AnalyticsCredentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURL,
		Endpoint:     s.endpoint,
		Scopes:       []string{gaapi.AnalyticsReadonlyScope},
	}
}

func (s *Service) clientContext(ctx context.Context) context.Context {
	if s.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// Prefix adds the "ga:" namespace to names that lack it.
func Prefix(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if !strings.HasPrefix(n, "ga:") {
			n = "ga:" + n
		}
		out = append(out, n)
	}
	return out
}

// Coerce converts a report cell by its column data type. Cells that do not
// parse are kept as strings.
func Coerce(dataType, value string) any {
	switch dataType {
	case "INTEGER":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	case "FLOAT", "PERCENT", "TIME":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return value
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

var _ ports.AnalyticsService = (*Service)(nil)
