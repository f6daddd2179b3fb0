// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/forkadmin/internal/ports"
	"github.com/stretchr/testify/require"
)

// Credentials are client settings in the awaiting-authorization step.
func Credentials() map[string]any {
	return map[string]any{
		"client_id":     "client-123.apps.example",
		"client_secret": "s3cret",
	}
}

// Authorized adds a token to Credentials.
func Authorized() map[string]any {
	v := Credentials()
	v["token"] = `{"access_token":"at","token_type":"Bearer"}`
	return v
}

// Linked is a complete wizard state matching mocks.NewAnalyticsService.
func Linked() map[string]any {
	v := Authorized()
	v["account_id"] = "1001"
	v["account_name"] = "Fork"
	v["web_property_id"] = "UA-1001-1"
	v["web_property_name"] = "fork-cms.com"
	v["profile_id"] = "5001"
	v["profile_name"] = "All Web Site Data"
	return v
}

// Seed writes values for module into store.
func Seed(t testing.TB, store ports.SettingsStore, module string, values map[string]any) {
	t.Helper()
	require.NoError(t, store.SetMany(context.Background(), module, values))
}
