package settings

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mitchellh/copystructure"
)

const (
	// KeyConfigSyncDirectory is the setting holding the config export directory.
	KeyConfigSyncDirectory = "config_sync_directory"
	// KeyDatabases is the root of the connection descriptor tree
	// (databases.<connection>.<target>).
	KeyDatabases = "databases"

	DefaultConnection = "default"
	DefaultTarget     = "default"
)

// Step status values reported in StepReport.
const (
	StatusApplied  = "applied"
	StatusAbsent   = "absent"
	StatusSkipped  = "skipped"
	StatusIncluded = "already-included"
)

// StepReport records what happened to one step of a resolution.
type StepReport struct {
	Name     string `json:"name" yaml:"name"`
	Fragment string `json:"fragment" yaml:"fragment"`
	Status   string `json:"status" yaml:"status"`
}

// DatabaseConnection is the typed view of databases.<connection>.<target>.
type DatabaseConnection struct {
	Database  string `mapstructure:"database" json:"database"`
	Username  string `mapstructure:"username" json:"username,omitempty"`
	Password  string `mapstructure:"password" json:"-"`
	Host      string `mapstructure:"host" json:"host,omitempty"`
	Port      int    `mapstructure:"port" json:"port,omitempty"`
	Driver    string `mapstructure:"driver" json:"driver,omitempty"`
	Prefix    string `mapstructure:"prefix" json:"prefix,omitempty"`
	Namespace string `mapstructure:"namespace" json:"namespace,omitempty"`
	Collation string `mapstructure:"collation" json:"collation,omitempty"`
}

// Settings is the frozen result of resolving one site. All accessors return
// copies; nothing reachable from a Settings value can be mutated.
type Settings struct {
	site       string
	shortName  string
	values     map[string]any
	provenance map[string][]string
	steps      []StepReport
	resolvedAt time.Time
}

func freeze(site, shortName string, values map[string]any, prov provenance, steps []StepReport, resolvedAt time.Time) *Settings {
	return &Settings{
		site:       site,
		shortName:  shortName,
		values:     deepCopy(values).(map[string]any),
		provenance: prov.clone(),
		steps:      append([]StepReport(nil), steps...),
		resolvedAt: resolvedAt,
	}
}

// Site returns the identifier the settings were resolved for.
func (s *Settings) Site() string { return s.site }

// ShortName returns the site's conventional short name.
func (s *Settings) ShortName() string { return s.shortName }

// ResolvedAt reports when the resolution chain finished.
func (s *Settings) ResolvedAt() time.Time { return s.resolvedAt }

// Map returns a deep copy of the whole configuration map.
func (s *Settings) Map() map[string]any {
	return deepCopy(s.values).(map[string]any)
}

// Get returns a copy of the value at path.
func (s *Settings) Get(path ...string) (any, bool) {
	v, ok := lookupPath(s.values, path)
	if !ok {
		return nil, false
	}
	return deepCopy(v), true
}

// String returns the value at path when it is a string.
func (s *Settings) String(path ...string) (string, bool) {
	v, ok := lookupPath(s.values, path)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// ConfigSyncDirectory returns the resolved config export directory.
func (s *Settings) ConfigSyncDirectory() string {
	dir, _ := s.String(KeyConfigSyncDirectory)
	return dir
}

// Database decodes databases.<connection>.<target>. found is false when the
// descriptor is missing.
func (s *Settings) Database(connection, target string) (conn DatabaseConnection, found bool, err error) {
	raw, ok := lookupPath(s.values, []string{KeyDatabases, connection, target})
	if !ok {
		return DatabaseConnection{}, false, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &conn,
	})
	if err != nil {
		return DatabaseConnection{}, true, err
	}
	if err := decoder.Decode(raw); err != nil {
		return DatabaseConnection{}, true, fmt.Errorf("decode databases.%s.%s: %w", connection, target, err)
	}
	return conn, true, nil
}

// Provenance returns, per dotted leaf path, the fragments that wrote it in
// order. The last entry is the writer whose value is visible.
func (s *Settings) Provenance() map[string][]string {
	out := make(map[string][]string, len(s.provenance))
	for k, v := range s.provenance {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// ProvenancePaths returns the sorted keys of Provenance.
func (s *Settings) ProvenancePaths() []string {
	paths := make([]string, 0, len(s.provenance))
	for k := range s.provenance {
		paths = append(paths, k)
	}
	sort.Strings(paths)
	return paths
}

// Steps reports the outcome of each resolution step in order.
func (s *Settings) Steps() []StepReport {
	return append([]StepReport(nil), s.steps...)
}

func deepCopy(v any) any {
	return copystructure.Must(copystructure.Copy(v))
}
