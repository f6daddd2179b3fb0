package linking

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/felixgeelhaar/forkadmin/internal/domain/audit"
	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/felixgeelhaar/forkadmin/internal/domain/invocation"
	"github.com/felixgeelhaar/forkadmin/internal/domain/settings"
	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

// Form fields.
const (
	FieldClientID     = "client_id"
	FieldClientSecret = "client_secret"
	FieldAccount      = "account"
	FieldWebProperty  = "web_property"
	FieldProfile      = "profile"
	FieldTrackingType = "tracking_type"
)

// Query parameters understood by Handle.
const (
	ParamCode   = "code"
	ParamRemove = "remove"
	ParamReport = "report"

	removeSession = "session"
)

// Report values attached to redirects.
const (
	ReportSaved         = "saved"
	ReportRemoved       = "removed"
	ReportAuthorized    = "authorized"
	ReportUpstreamError = "upstream-error"
)

// Options configures an Engine.
type Options struct {
	Module string
	// SettingsAction is the action that hosts the wizard (default "settings").
	SettingsAction string
	RedirectURL    string
	InvocationID   string
	Store          ports.SettingsStore
	Service        ports.AnalyticsService
	Cache          ports.ReportCache
	Audit          audit.Logger
	Logger         ports.Logger
}

// Input is one invocation of the wizard.
type Input struct {
	Query map[string]string
	Form  map[string]string
}

// Catalog is what the selection step offers.
type Catalog struct {
	Accounts      []ports.AnalyticsAccount     `json:"accounts"`
	WebProperties []ports.AnalyticsWebProperty `json:"web_properties"`
	Profiles      []ports.AnalyticsProfile     `json:"profiles"`
}

// LinkedResource describes the linked profile.
type LinkedResource struct {
	AccountID       string `json:"account_id"`
	AccountName     string `json:"account_name"`
	WebPropertyID   string `json:"web_property_id"`
	WebPropertyName string `json:"web_property_name"`
	ProfileID       string `json:"profile_id"`
	ProfileName     string `json:"profile_name"`
	TrackingType    string `json:"tracking_type"`
}

// Outcome is the result of one Handle call.
type Outcome struct {
	State    State                `json:"state"`
	Accepted bool                 `json:"accepted"`
	Errors   []failure.FieldError `json:"errors,omitempty"`
	Redirect *invocation.Redirect `json:"redirect,omitempty"`
	Report   string               `json:"report,omitempty"`
	AuthURL  string               `json:"auth_url,omitempty"`
	Catalog  *Catalog             `json:"catalog,omitempty"`
	Linked   *LinkedResource      `json:"linked,omitempty"`
	// Upstream holds the message of a recovered upstream failure.
	Upstream string `json:"upstream,omitempty"`
}

// SubmitResult is the outcome of a form submission.
type SubmitResult struct {
	Accepted bool                 `json:"accepted"`
	Errors   []failure.FieldError `json:"errors,omitempty"`
	Redirect *invocation.Redirect `json:"redirect,omitempty"`
}

// Engine runs the wizard for one module.
type Engine struct {
	module         string
	settingsAction string
	redirectURL    string
	invocationID   string
	store          ports.SettingsStore
	service        ports.AnalyticsService
	cache          ports.ReportCache
	audit          audit.Logger
	logger         ports.Logger
}

// NewEngine validates opts and creates an Engine.
func NewEngine(opts Options) (*Engine, error) {
	switch {
	case opts.Module == "":
		return nil, errors.New("linking: module is required")
	case opts.Store == nil:
		return nil, errors.New("linking: settings store is required")
	case opts.Service == nil:
		return nil, errors.New("linking: analytics service is required")
	case opts.Cache == nil:
		return nil, errors.New("linking: report cache is required")
	}
	e := &Engine{
		module:         opts.Module,
		settingsAction: opts.SettingsAction,
		redirectURL:    opts.RedirectURL,
		invocationID:   opts.InvocationID,
		store:          opts.Store,
		service:        opts.Service,
		cache:          opts.Cache,
		audit:          opts.Audit,
		logger:         opts.Logger,
	}
	if e.settingsAction == "" {
		e.settingsAction = "settings"
	}
	if e.audit == nil {
		e.audit = audit.NewNullLogger()
	}
	if e.logger == nil {
		return nil, errors.New("linking: logger is required")
	}
	return e, nil
}

// CurrentState classifies freshly read settings.
func (e *Engine) CurrentState(ctx context.Context) (State, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return "", err
	}
	return Classify(snap), nil
}

// Submit handles a form submission against the current step.
func (e *Engine) Submit(ctx context.Context, form map[string]string) (*SubmitResult, error) {
	out, err := e.Handle(ctx, Input{Form: form})
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Accepted: out.Accepted, Errors: out.Errors, Redirect: out.Redirect}, nil
}

// Handle evaluates the current step and runs exactly one step handler.
func (e *Engine) Handle(ctx context.Context, in Input) (*Outcome, error) {
	if in.Query[ParamRemove] == removeSession {
		if err := e.Reset(ctx); err != nil {
			return nil, err
		}
		return &Outcome{State: StateAwaitingCredentials, Accepted: true, Redirect: e.redirect(ReportRemoved)}, nil
	}

	snap, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	state := Classify(snap)

	var out *Outcome
	switch state {
	case StateAwaitingCredentials:
		out, err = e.handleCredentials(ctx, state, in)
	case StateAwaitingAuthorization:
		out, err = e.handleAuthorization(ctx, state, snap, in)
	case StateAwaitingResourceSelection:
		out, err = e.handleSelection(ctx, state, snap, in)
	default:
		out, err = e.handleLinked(ctx, snap, in)
	}
	if err != nil {
		return nil, err
	}
	if out.Report == "" {
		out.Report = in.Query[ParamReport]
	}
	return out, nil
}

// Reset clears every wizard key and the module's report cache.
func (e *Engine) Reset(ctx context.Context) error {
	before, err := e.CurrentState(ctx)
	if err != nil {
		return err
	}

	if _, err := e.advance(ctx, before, EventReset); err != nil {
		return err
	}

	values := make(map[string]any, len(ResetKeys()))
	for _, k := range ResetKeys() {
		values[k] = nil
	}
	if err := e.store.SetMany(ctx, e.module, values); err != nil {
		return fmt.Errorf("clear %s link settings: %w", e.module, err)
	}
	if err := e.cache.Clear(ctx, e.module); err != nil {
		return fmt.Errorf("clear %s report cache: %w", e.module, err)
	}

	e.record(ctx, audit.NewEvent(audit.EventLinkReset).Detail("previous_state", string(before)))
	e.logger.Info(ctx, "analytics link removed", ports.F("module", e.module))
	return nil
}

func (e *Engine) handleCredentials(ctx context.Context, from State, in Input) (*Outcome, error) {
	out := &Outcome{State: StateAwaitingCredentials}
	if len(in.Form) == 0 {
		return out, nil
	}

	errs := failure.NewErrorList()
	errs.Required(FieldClientID, in.Form[FieldClientID])
	errs.Required(FieldClientSecret, in.Form[FieldClientSecret])
	if errs.HasErrors() {
		out.Errors = errs.Fields()
		return out, nil
	}
	if _, err := e.advance(ctx, from, EventCredentialsSaved); err != nil {
		return nil, err
	}

	err := e.store.SetMany(ctx, e.module, map[string]any{
		KeyClientID:     in.Form[FieldClientID],
		KeyClientSecret: in.Form[FieldClientSecret],
	})
	if err != nil {
		return nil, fmt.Errorf("save client credentials: %w", err)
	}

	out.Accepted = true
	out.Redirect = e.redirect("")
	return out, nil
}

func (e *Engine) handleAuthorization(ctx context.Context, from State, snap Snapshot, in Input) (*Outcome, error) {
	creds := e.credentials(snap)
	code := in.Query[ParamCode]
	if code == "" {
		return &Outcome{State: StateAwaitingAuthorization, AuthURL: e.service.AuthCodeURL(creds)}, nil
	}

	token, err := e.service.ExchangeCode(ctx, creds, code)
	if err != nil {
		return e.upstream(ctx, from, "authorization code exchange", err)
	}
	if _, err := e.advance(ctx, from, EventAuthorized); err != nil {
		return nil, err
	}
	if err := e.store.Set(ctx, e.module, KeyToken, token); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}

	return &Outcome{State: StateAwaitingAuthorization, Accepted: true, Redirect: e.redirect(ReportAuthorized)}, nil
}

func (e *Engine) handleSelection(ctx context.Context, from State, snap Snapshot, in Input) (*Outcome, error) {
	catalog, err := e.catalog(ctx, e.session(snap))
	if err != nil {
		return e.upstream(ctx, from, "resource listing", err)
	}
	out := &Outcome{State: StateAwaitingResourceSelection, Catalog: catalog}
	if len(in.Form) == 0 {
		return out, nil
	}

	account, property, profile, errs := validateSelection(catalog, in.Form)
	if errs.HasErrors() {
		out.Errors = errs.Fields()
		return out, nil
	}
	if _, err := e.advance(ctx, from, EventResourceSelected); err != nil {
		return nil, err
	}

	err = e.store.SetMany(ctx, e.module, map[string]any{
		KeyAccountID:       account.ID,
		KeyAccountName:     account.Name,
		KeyWebPropertyID:   property.ID,
		KeyWebPropertyName: property.Name,
		KeyProfileID:       profile.ID,
		KeyProfileName:     profile.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("save selected profile: %w", err)
	}
	e.record(ctx, audit.NewEvent(audit.EventLinkSaved).
		Detail("account_id", account.ID).
		Detail("web_property_id", property.ID).
		Detail("profile_id", profile.ID))

	out.Accepted = true
	out.Redirect = e.redirect(ReportSaved)
	return out, nil
}

func (e *Engine) handleLinked(ctx context.Context, snap Snapshot, in Input) (*Outcome, error) {
	linked := &LinkedResource{
		AccountID:       snap[KeyAccountID],
		AccountName:     snap[KeyAccountName],
		WebPropertyID:   snap[KeyWebPropertyID],
		WebPropertyName: snap[KeyWebPropertyName],
		ProfileID:       snap[KeyProfileID],
		ProfileName:     snap[KeyProfileName],
		TrackingType:    snap[KeyTrackingType],
	}
	if linked.TrackingType == "" {
		linked.TrackingType = DefaultTrackingType
	}
	out := &Outcome{State: StateLinked, Linked: linked}

	tracking, submitted := in.Form[FieldTrackingType]
	if !submitted {
		return out, nil
	}
	if !slices.Contains(TrackingTypes(), tracking) {
		errs := failure.NewErrorList()
		errs.Add(FieldTrackingType, fmt.Sprintf("must be one of %v", TrackingTypes()))
		out.Errors = errs.Fields()
		return out, nil
	}
	if err := e.store.Set(ctx, e.module, KeyTrackingType, tracking); err != nil {
		return nil, fmt.Errorf("save tracking type: %w", err)
	}
	e.logger.Info(ctx, "tracking type saved", ports.F("tracking_type", tracking))

	linked.TrackingType = tracking
	out.Accepted = true
	out.Redirect = e.redirect(ReportSaved)
	return out, nil
}

// upstream recovers from a failed provider call: the token is dropped and
// the caller is sent back to the wizard entry.
func (e *Engine) upstream(ctx context.Context, from State, op string, cause error) (*Outcome, error) {
	var uerr *failure.Error
	if !errors.As(cause, &uerr) || uerr.Code != failure.CodeUpstreamFailure {
		uerr = failure.Upstream(op, cause)
	}
	e.logger.Warn(ctx, "analytics provider call failed, clearing token",
		ports.F("op", op), ports.Err(cause))

	if _, err := e.advance(ctx, from, EventUpstreamFailed); err != nil {
		return nil, err
	}
	if err := e.store.Set(ctx, e.module, KeyToken, nil); err != nil {
		return nil, fmt.Errorf("clear token after %s: %w", op, err)
	}

	return &Outcome{
		State:    StateAwaitingAuthorization,
		Redirect: e.redirect(ReportUpstreamError),
		Upstream: uerr.Error(),
	}, nil
}

func (e *Engine) catalog(ctx context.Context, session ports.AnalyticsSession) (*Catalog, error) {
	accounts, err := collect(e.service.Accounts(ctx, session))
	if err != nil {
		return nil, err
	}
	properties, err := collect(e.service.WebProperties(ctx, session))
	if err != nil {
		return nil, err
	}
	properties = slices.DeleteFunc(properties, func(p ports.AnalyticsWebProperty) bool {
		return p.ProfilesCount == 0
	})
	profiles, err := collect(e.service.Profiles(ctx, session))
	if err != nil {
		return nil, err
	}
	return &Catalog{Accounts: accounts, WebProperties: properties, Profiles: profiles}, nil
}

func validateSelection(c *Catalog, form map[string]string) (ports.AnalyticsAccount, ports.AnalyticsWebProperty, ports.AnalyticsProfile, *failure.ErrorList) {
	var (
		account  ports.AnalyticsAccount
		property ports.AnalyticsWebProperty
		profile  ports.AnalyticsProfile
	)
	errs := failure.NewErrorList()
	missingAccount := errs.Required(FieldAccount, form[FieldAccount])
	missingProperty := errs.Required(FieldWebProperty, form[FieldWebProperty])
	missingProfile := errs.Required(FieldProfile, form[FieldProfile])
	if !missingAccount {
		i := slices.IndexFunc(c.Accounts, func(a ports.AnalyticsAccount) bool { return a.ID == form[FieldAccount] })
		if i < 0 {
			errs.Add(FieldAccount, "unknown account")
		} else {
			account = c.Accounts[i]
		}
	}
	if !missingProperty {
		i := slices.IndexFunc(c.WebProperties, func(p ports.AnalyticsWebProperty) bool { return p.ID == form[FieldWebProperty] })
		switch {
		case i < 0:
			errs.Add(FieldWebProperty, "unknown web property")
		case account.ID != "" && c.WebProperties[i].AccountID != account.ID:
			errs.Add(FieldWebProperty, "web property does not belong to the selected account")
		default:
			property = c.WebProperties[i]
		}
	}
	if !missingProfile {
		i := slices.IndexFunc(c.Profiles, func(p ports.AnalyticsProfile) bool { return p.ID == form[FieldProfile] })
		switch {
		case i < 0:
			errs.Add(FieldProfile, "unknown profile")
		case property.ID != "" && c.Profiles[i].WebPropertyID != property.ID:
			errs.Add(FieldProfile, "profile does not belong to the selected web property")
		default:
			profile = c.Profiles[i]
		}
	}
	return account, property, profile, errs
}

func collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (e *Engine) snapshot(ctx context.Context) (Snapshot, error) {
	snap, err := settings.Snapshot(ctx, e.store, e.module, SnapshotKeys()...)
	if err != nil {
		return nil, err
	}
	return Snapshot(snap), nil
}

func (e *Engine) credentials(snap Snapshot) ports.AnalyticsCredentials {
	return ports.AnalyticsCredentials{
		ClientID:     snap[KeyClientID],
		ClientSecret: snap[KeyClientSecret],
		RedirectURL:  e.redirectURL,
	}
}

func (e *Engine) session(snap Snapshot) ports.AnalyticsSession {
	return ports.AnalyticsSession{AnalyticsCredentials: e.credentials(snap), Token: snap[KeyToken]}
}

func (e *Engine) redirect(report string) *invocation.Redirect {
	r := &invocation.Redirect{Module: e.module, Action: e.settingsAction}
	if report != "" {
		r.Query = map[string]string{ParamReport: report}
	}
	return r
}

// advance asks the wizard machine whether event is accepted in from. A
// refused event aborts the step before anything is persisted.
func (e *Engine) advance(ctx context.Context, from State, event string) (State, error) {
	to, err := Next(from, event)
	if err != nil {
		e.logger.Error(ctx, "linking transition refused",
			ports.F("from", string(from)), ports.F("event", event), ports.Err(err))
		return "", err
	}
	e.logger.Debug(ctx, "linking transition",
		ports.F("from", string(from)),
		ports.F("event", event),
		ports.F("to", string(to)),
	)
	return to, nil
}

func (e *Engine) record(ctx context.Context, b *audit.Builder) {
	event := b.For(e.invocationID, e.module, e.settingsAction).Build()
	if err := e.audit.Log(ctx, event); err != nil {
		e.logger.Warn(ctx, "audit log write failed", ports.Err(err))
	}
}
