package settings

import (
	"os"
	"strings"
)

// LocalDevelopmentVar is the variable the local container environment sets.
const LocalDevelopmentVar = "IS_DDEV_PROJECT"

// Environment is the read-only view of process state consulted during resolution.
type Environment interface {
	Lookup(name string) (string, bool)
	IsLocalDevelopment() bool
}

type mapEnvironment struct {
	vars map[string]string
}

// MapEnvironment builds an Environment from a fixed set of variables.
func MapEnvironment(vars map[string]string) Environment {
	copied := make(map[string]string, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	return &mapEnvironment{vars: copied}
}

// OSEnvironment snapshots the process environment. Later changes to the
// process environment are not observed.
func OSEnvironment() Environment {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		vars[name] = value
	}
	return &mapEnvironment{vars: vars}
}

func (e *mapEnvironment) Lookup(name string) (string, bool) {
	v, ok := e.vars[name]
	return v, ok
}

func (e *mapEnvironment) IsLocalDevelopment() bool {
	return isLocalDevelopment(e)
}

type overlayEnvironment struct {
	base      Environment
	overrides map[string]string
}

// WithOverrides layers overrides on top of base. Overrides win.
func WithOverrides(base Environment, overrides map[string]string) Environment {
	if len(overrides) == 0 {
		return base
	}
	if base == nil {
		return MapEnvironment(overrides)
	}
	copied := make(map[string]string, len(overrides))
	for k, v := range overrides {
		copied[k] = v
	}
	return &overlayEnvironment{base: base, overrides: copied}
}

func (e *overlayEnvironment) Lookup(name string) (string, bool) {
	if v, ok := e.overrides[name]; ok {
		return v, true
	}
	return e.base.Lookup(name)
}

func (e *overlayEnvironment) IsLocalDevelopment() bool {
	return isLocalDevelopment(e)
}

func isLocalDevelopment(env Environment) bool {
	v, ok := env.Lookup(LocalDevelopmentVar)
	return ok && v == "true"
}
