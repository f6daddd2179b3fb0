// Package invocation carries the per-request state threaded through the
// config loader, the resolver and module actions.
//
// A Context lives for exactly one HTTP request, CLI call or cronjob run.
package invocation

import (
	"maps"
	"net/url"
	"sort"

	"github.com/felixgeelhaar/forkadmin/internal/ports"
	"github.com/google/uuid"
)

// Options configures a new Context.
type Options struct {
	ID       string
	Module   string
	Action   string
	Language string
	Params   map[string]string
	Form     map[string]string
	Settings ports.SettingsStore
	Logger   ports.Logger
}

// Context is the explicit request context.
type Context struct {
	id       string
	module   string
	action   string
	language string
	params   map[string]string
	form     map[string]string
	settings ports.SettingsStore
	services *Services
	logger   ports.Logger
}

// New builds a Context. A blank ID is replaced by a random UUID.
func New(opts Options) *Context {
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}

	c := &Context{
		id:       id,
		module:   opts.Module,
		action:   opts.Action,
		language: opts.Language,
		params:   maps.Clone(opts.Params),
		form:     maps.Clone(opts.Form),
		settings: opts.Settings,
		services: NewServices(),
	}
	if c.params == nil {
		c.params = map[string]string{}
	}
	if c.form == nil {
		c.form = map[string]string{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	c.logger = logger.With(
		ports.F("invocation_id", id),
		ports.F("module", opts.Module),
		ports.F("action", opts.Action),
	)
	return c
}

func (c *Context) ID() string                    { return c.id }
func (c *Context) Module() string                { return c.module }
func (c *Context) Action() string                { return c.action }
func (c *Context) Language() string              { return c.language }
func (c *Context) Settings() ports.SettingsStore { return c.settings }
func (c *Context) Services() *Services           { return c.services }
func (c *Context) Logger() ports.Logger          { return c.logger }

// Param returns a request parameter or "".
func (c *Context) Param(key string) string {
	return c.params[key]
}

// Params returns a copy of all request parameters.
func (c *Context) Params() map[string]string {
	return maps.Clone(c.params)
}

// Form returns a copy of the submitted form values. It is empty for
// requests that did not submit a form.
func (c *Context) Form() map[string]string {
	return maps.Clone(c.form)
}

// Submitted reports whether the request carried a form.
func (c *Context) Submitted() bool {
	return len(c.form) > 0
}

// Redirect is a control-flow escape to another action of a module.
type Redirect struct {
	Module string            `json:"module"`
	Action string            `json:"action"`
	Query  map[string]string `json:"query,omitempty"`
}

// Location renders the redirect as a front-door path.
func (r Redirect) Location() string {
	loc := "/" + r.Module + "/" + r.Action
	if len(r.Query) == 0 {
		return loc
	}
	keys := make([]string, 0, len(r.Query))
	for k := range r.Query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	v := url.Values{}
	for _, k := range keys {
		v.Set(k, r.Query[k])
	}
	return loc + "?" + v.Encode()
}

// Result is what an action hands back to the front door. Cronjobs return
// an empty Result.
type Result struct {
	Body     any       `json:"body,omitempty"`
	Redirect *Redirect `json:"redirect,omitempty"`
}

// RedirectTo returns a Result that redirects.
func RedirectTo(module, action string, query map[string]string) *Result {
	return &Result{Redirect: &Redirect{Module: module, Action: action, Query: query}}
}
