// Package core implements the core module: the always-installed module
// that owns installation-wide settings.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/forkadmin/internal/domain/cronjob"
	"github.com/felixgeelhaar/forkadmin/internal/domain/invocation"
	"github.com/felixgeelhaar/forkadmin/internal/domain/module"
	"github.com/felixgeelhaar/forkadmin/internal/domain/moduleconfig"
	"github.com/felixgeelhaar/forkadmin/internal/domain/settings"
	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

// LastPingKey holds the RFC 3339 time of the last ping cronjob.
const LastPingKey = "last_ping"

// Status is the body of the core index action.
type Status struct {
	Cronjobs []string `json:"cronjobs"`
	LastPing string   `json:"last_ping,omitempty"`
	Modules  []string `json:"modules"`
}

// Register adds the core config, index action and ping cronjob to reg.
func Register(reg *module.Registry, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}
	if err := moduleconfig.Register(reg, module.CoreModule, "BackendCoreConfig", func() moduleconfig.Config {
		return moduleconfig.Base{Name: module.CoreModule}
	}); err != nil {
		return err
	}
	if err := reg.RegisterAction(module.CoreModule, "index", "BackendCoreIndex", func() module.Action {
		return module.ActionFunc(func(ctx context.Context, inv *invocation.Context) (*invocation.Result, error) {
			return index(ctx, reg, inv)
		})
	}); err != nil {
		return err
	}
	return reg.RegisterCronjob(module.CoreModule, "ping", "BackendCoreCronjobPing", func() module.Action {
		return module.ActionFunc(func(ctx context.Context, inv *invocation.Context) (*invocation.Result, error) {
			stamp := now().UTC().Format(time.RFC3339)
			if err := inv.Settings().Set(ctx, module.CoreModule, LastPingKey, stamp); err != nil {
				return nil, fmt.Errorf("record ping: %w", err)
			}
			inv.Logger().Info(ctx, "pong", ports.F("at", stamp))
			return &invocation.Result{}, nil
		})
	})
}

func index(ctx context.Context, reg *module.Registry, inv *invocation.Context) (*invocation.Result, error) {
	runs, err := settings.Strings(ctx, inv.Settings(), module.CoreModule, cronjob.RunsKey)
	if err != nil {
		return nil, err
	}
	last, err := settings.String(ctx, inv.Settings(), module.CoreModule, LastPingKey)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []string{}
	}
	return &invocation.Result{Body: Status{Cronjobs: runs, LastPing: last, Modules: reg.Modules()}}, nil
}
