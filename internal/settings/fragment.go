package settings

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Fragment is one parsed step of the settings chain.
type Fragment struct {
	Name     string
	Include  []string
	Settings map[string]any
	Append   map[string]any
	Site     *SiteDirective
}

// SiteDirective carries the per-site entry overrides.
type SiteDirective struct {
	ShortName     string             `yaml:"short_name"`
	LocalDatabase LocalDatabaseRules `yaml:"local_database"`
}

// LocalDatabaseRules selects which connection is renamed under local development.
type LocalDatabaseRules struct {
	Connection string `yaml:"connection"`
	Target     string `yaml:"target"`
	Name       string `yaml:"name"`
}

type fragmentDocument struct {
	Include  []string       `yaml:"include"`
	Settings map[string]any `yaml:"settings"`
	Append   map[string]any `yaml:"append"`
	Site     *SiteDirective `yaml:"site"`
}

var envReference = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ParseFragment decodes a YAML fragment. ${NAME} references inside string
// values are expanded through env; unset variables expand to "".
func ParseFragment(name string, data []byte, env Environment) (*Fragment, error) {
	var doc fragmentDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrMalformedFragment, name, err)
	}

	return &Fragment{
		Name:     name,
		Include:  doc.Include,
		Settings: normalizeMap(doc.Settings, env),
		Append:   normalizeMap(doc.Append, env),
		Site:     doc.Site,
	}, nil
}

func normalizeMap(in map[string]any, env Environment) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = normalizeValue(v, env)
	}
	return out
}

// normalizeValue converts yaml.v3 output into map[string]any / []any trees.
func normalizeValue(v any, env Environment) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeMap(t, env)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = val
		}
		return normalizeMap(m, env)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item, env)
		}
		return out
	case string:
		return expand(t, env)
	default:
		return v
	}
}

func expand(s string, env Environment) string {
	if env == nil {
		return s
	}
	return envReference.ReplaceAllStringFunc(s, func(ref string) string {
		name := envReference.FindStringSubmatch(ref)[1]
		v, _ := env.Lookup(name)
		return v
	})
}
