// Package mocks provides test doubles for the ports package.
package mocks

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

// AnalyticsService is a scripted ports.AnalyticsService.
type AnalyticsService struct {
	mu sync.Mutex

	AccountList  []ports.AnalyticsAccount
	PropertyList []ports.AnalyticsWebProperty
	ProfileList  []ports.AnalyticsProfile
	Rows         []ports.AnalyticsRow

	// Token is returned by ExchangeCode for any code except BadCode.
	Token   string
	BadCode string
	// ExchangeErr, when set, is returned by every ExchangeCode call.
	ExchangeErr error

	// ListErr fails every listing after the first item.
	ListErr error
	DataErr error

	Exchanged []string
	Queries   []ports.AnalyticsQuery
	Sessions  []ports.AnalyticsSession
}

// ErrBadCode is returned by ExchangeCode for BadCode.
var ErrBadCode = errors.New("invalid_grant")

// NewAnalyticsService returns a service with one account, property and profile.
func NewAnalyticsService() *AnalyticsService {
	return &AnalyticsService{
		AccountList: []ports.AnalyticsAccount{{ID: "1001", Name: "Fork"}},
		PropertyList: []ports.AnalyticsWebProperty{
			{ID: "UA-1001-1", Name: "fork-cms.com", AccountID: "1001", ProfilesCount: 1},
			{ID: "UA-1001-2", Name: "empty.example", AccountID: "1001", ProfilesCount: 0},
		},
		ProfileList: []ports.AnalyticsProfile{{ID: "5001", Name: "All Web Site Data", AccountID: "1001", WebPropertyID: "UA-1001-1"}},
		Token:       `{"access_token":"at","token_type":"Bearer","refresh_token":"rt"}`,
		BadCode:     "bad",
	}
}

func (s *AnalyticsService) AuthCodeURL(creds ports.AnalyticsCredentials) string {
	return "https://accounts.example/auth?client_id=" + creds.ClientID
}

func (s *AnalyticsService) ExchangeCode(_ context.Context, _ ports.AnalyticsCredentials, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Exchanged = append(s.Exchanged, code)
	if s.ExchangeErr != nil {
		return "", s.ExchangeErr
	}
	if code == s.BadCode {
		return "", ErrBadCode
	}
	return s.Token, nil
}

func (s *AnalyticsService) Accounts(_ context.Context, session ports.AnalyticsSession) iter.Seq2[ports.AnalyticsAccount, error] {
	s.remember(session)
	return sequence(s.AccountList, s.ListErr)
}

func (s *AnalyticsService) WebProperties(_ context.Context, session ports.AnalyticsSession) iter.Seq2[ports.AnalyticsWebProperty, error] {
	s.remember(session)
	return sequence(s.PropertyList, s.ListErr)
}

func (s *AnalyticsService) Profiles(_ context.Context, session ports.AnalyticsSession) iter.Seq2[ports.AnalyticsProfile, error] {
	s.remember(session)
	return sequence(s.ProfileList, s.ListErr)
}

func (s *AnalyticsService) Data(_ context.Context, session ports.AnalyticsSession, q ports.AnalyticsQuery) iter.Seq2[ports.AnalyticsRow, error] {
	s.mu.Lock()
	s.Queries = append(s.Queries, q)
	s.mu.Unlock()
	s.remember(session)
	return sequence(s.Rows, s.DataErr)
}

func (s *AnalyticsService) remember(session ports.AnalyticsSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sessions = append(s.Sessions, session)
}

func sequence[T any](items []T, failAfterFirst error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for i, item := range items {
			if i > 0 && failAfterFirst != nil {
				break
			}
			if !yield(item, nil) {
				return
			}
		}
		if failAfterFirst != nil {
			var zero T
			yield(zero, failAfterFirst)
		}
	}
}

var _ ports.AnalyticsService = (*AnalyticsService)(nil)
