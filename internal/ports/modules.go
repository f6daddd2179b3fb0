package ports

import "context"

// ModuleLister enumerates the modules installed on the host.
type ModuleLister interface {
	ListModules(ctx context.Context) ([]string, error)
}

// ReportCache stores derived data (reports, fetched analytics rows) per module.
type ReportCache interface {
	Put(ctx context.Context, module, name string, value any) error
	Get(ctx context.Context, module, name string, dst any) (bool, error)
	// Clear drops every entry belonging to module.
	Clear(ctx context.Context, module string) error
}
