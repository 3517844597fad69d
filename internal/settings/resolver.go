package settings

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step names in application order.
const (
	StepCommon   = "common"
	StepLocalDev = "local-dev"
	StepPost     = "post"
	StepSite     = "site"
)

// Step is one entry of the fixed resolution chain.
type Step struct {
	Name        string
	Fragment    string
	AppliesWhen func(Environment) bool
}

// Resolver produces frozen Settings for a site from a fragment Source.
type Resolver struct {
	source Source
	layout Layout
	logger *zap.Logger
	clock  func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLayout replaces the default fragment layout.
func WithLayout(layout Layout) ResolverOption {
	return func(r *Resolver) {
		r.layout = layout
	}
}

// WithLogger attaches a logger; fragment loads are logged at debug level.
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source stamped on resolved settings.
func WithClock(clock func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewResolver constructs a Resolver reading fragments from source.
func NewResolver(source Source, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		source: source,
		layout: DefaultLayout(),
		logger: zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Layout returns the layout the resolver uses.
func (r *Resolver) Layout() Layout {
	return r.layout
}

// Chain returns the ordered steps applied when resolving site. The post
// step always follows common and local-dev; the site step always runs last.
func (r *Resolver) Chain(site string) []Step {
	return []Step{
		{Name: StepCommon, Fragment: r.layout.CommonFragment},
		{
			Name:        StepLocalDev,
			Fragment:    r.layout.LocalDevPath(site),
			AppliesWhen: Environment.IsLocalDevelopment,
		},
		{Name: StepPost, Fragment: r.layout.PostFragment},
		{Name: StepSite, Fragment: r.layout.SiteEntryPath(site)},
	}
}

// Resolve runs the chain for site and returns the frozen configuration map.
// Absent fragments are skipped. A nil env behaves like an empty environment.
func (r *Resolver) Resolve(site string, env Environment) (*Settings, error) {
	if err := ValidateSite(site); err != nil {
		return nil, err
	}
	if env == nil {
		env = MapEnvironment(nil)
	}

	res := &resolution{
		resolver:  r,
		env:       env,
		site:      site,
		values:    make(map[string]any),
		prov:      make(provenance),
		included:  make(map[string]bool),
		fragments: make(map[string]*Fragment),
	}

	shortName := site
	for _, step := range r.Chain(site) {
		if step.AppliesWhen != nil && !step.AppliesWhen(env) {
			res.report(step, StatusSkipped)
			continue
		}

		if step.Name == StepSite {
			name, err := res.applySite(step)
			if err != nil {
				return nil, err
			}
			shortName = name
			continue
		}

		if _, err := res.apply(step); err != nil {
			return nil, err
		}
	}

	r.logger.Debug("site settings resolved",
		zap.String("site", site),
		zap.String("short_name", shortName),
		zap.Bool("local_development", env.IsLocalDevelopment()),
	)

	return freeze(site, shortName, res.values, res.prov, res.steps, r.clock()), nil
}

type resolution struct {
	resolver  *Resolver
	env       Environment
	site      string
	values    map[string]any
	prov      provenance
	included  map[string]bool
	fragments map[string]*Fragment
	steps     []StepReport
}

func (res *resolution) report(step Step, status string) {
	res.steps = append(res.steps, StepReport{Name: step.Name, Fragment: step.Fragment, Status: status})
	res.resolver.logger.Debug("settings step",
		zap.String("site", res.site),
		zap.String("step", step.Name),
		zap.String("fragment", step.Fragment),
		zap.String("status", status),
	)
}

func (res *resolution) apply(step Step) (*Fragment, error) {
	frag, status, err := res.include(step.Fragment)
	if err != nil {
		return nil, fmt.Errorf("%s step: %w", step.Name, err)
	}
	res.report(step, status)
	return frag, nil
}

// applySite loads the site entry and applies the per-site overrides on top
// of everything the shared chain produced. It returns the short name.
func (res *resolution) applySite(step Step) (string, error) {
	frag, err := res.apply(step)
	if err != nil {
		return "", err
	}

	directive := SiteDirective{}
	if frag != nil && frag.Site != nil {
		directive = *frag.Site
	}
	shortName := directive.ShortName
	if shortName == "" {
		shortName = res.site
	}

	layout := res.resolver.layout
	origin := step.Fragment + "#site"
	setPath(res.values, []string{KeyConfigSyncDirectory}, layout.ConfigSyncDirectory(shortName), origin, res.prov)

	if res.env.IsLocalDevelopment() {
		db := directive.LocalDatabase
		if db.Connection == "" {
			db.Connection = DefaultConnection
		}
		if db.Target == "" {
			db.Target = DefaultTarget
		}
		if db.Name == "" {
			db.Name = layout.DatabaseName(shortName)
		}
		setPath(res.values, []string{KeyDatabases, db.Connection, db.Target, "database"}, db.Name, origin, res.prov)
	}

	return shortName, nil
}

// include loads name and its includes, each at most once per resolution.
func (res *resolution) include(name string) (*Fragment, string, error) {
	name = CanonicalPath(name)
	if res.included[name] {
		return res.fragments[name], StatusIncluded, nil
	}

	data, found, err := res.resolver.source.Lookup(name)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, StatusAbsent, nil
	}
	res.included[name] = true

	frag, err := ParseFragment(name, data, res.env)
	if err != nil {
		return nil, "", err
	}
	res.fragments[name] = frag

	for _, inc := range frag.Include {
		if _, _, err := res.include(inc); err != nil {
			return nil, "", fmt.Errorf("include %s from %s: %w", inc, name, err)
		}
	}

	mergeSettings(res.values, frag.Settings, nil, name, res.prov)
	appendSettings(res.values, frag.Append, nil, name, res.prov)
	return frag, StatusApplied, nil
}
