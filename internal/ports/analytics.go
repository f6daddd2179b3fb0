package ports

import (
	"context"
	"iter"
	"time"
)

// AnalyticsCredentials identifies the OAuth client registered with the
// analytics provider.
type AnalyticsCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// AnalyticsSession is an authorized connection: credentials plus the
// serialized token obtained from ExchangeCode.
type AnalyticsSession struct {
	AnalyticsCredentials
	Token string
}

// AnalyticsAccount is a top-level analytics account.
type AnalyticsAccount struct {
	ID        string
	Name      string
	CreatedOn time.Time
	UpdatedOn time.Time
}

// AnalyticsWebProperty is a tracked site within an account.
type AnalyticsWebProperty struct {
	ID            string
	Name          string
	AccountID     string
	InternalID    string
	WebsiteURL    string
	ProfilesCount int64
	CreatedOn     time.Time
	UpdatedOn     time.Time
}

// AnalyticsProfile is a reporting view on a web property.
type AnalyticsProfile struct {
	ID            string
	Name          string
	AccountID     string
	WebPropertyID string
	CreatedOn     time.Time
	UpdatedOn     time.Time
}

// AnalyticsQuery describes a report request against one profile.
type AnalyticsQuery struct {
	ProfileID  string
	Start      time.Time
	End        time.Time
	Metrics    []string
	Dimensions []string
}

// AnalyticsRow is one report row keyed by column name. Values are int64,
// float64 or string depending on the column type.
type AnalyticsRow map[string]any

// AnalyticsService is the external analytics provider.
//
// Listing methods return lazy, finite sequences; ranging over a sequence
// again starts a fresh fetch.
type AnalyticsService interface {
	AuthCodeURL(creds AnalyticsCredentials) string
	ExchangeCode(ctx context.Context, creds AnalyticsCredentials, code string) (string, error)
	Accounts(ctx context.Context, session AnalyticsSession) iter.Seq2[AnalyticsAccount, error]
	WebProperties(ctx context.Context, session AnalyticsSession) iter.Seq2[AnalyticsWebProperty, error]
	Profiles(ctx context.Context, session AnalyticsSession) iter.Seq2[AnalyticsProfile, error]
	Data(ctx context.Context, session AnalyticsSession, query AnalyticsQuery) iter.Seq2[AnalyticsRow, error]
}
