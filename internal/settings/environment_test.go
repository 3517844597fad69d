package settings

import "testing"

func TestMapEnvironmentIsolatedFromInput(t *testing.T) {
	vars := map[string]string{LocalDevelopmentVar: "true"}
	env := MapEnvironment(vars)
	vars[LocalDevelopmentVar] = "false"

	if !env.IsLocalDevelopment() {
		t.Fatalf("expected environment to keep its own copy")
	}
}

func TestOSEnvironmentSnapshot(t *testing.T) {
	t.Setenv(LocalDevelopmentVar, "true")
	env := OSEnvironment()
	t.Setenv(LocalDevelopmentVar, "false")

	if !env.IsLocalDevelopment() {
		t.Fatalf("expected snapshot taken at construction")
	}
	if v, ok := env.Lookup(LocalDevelopmentVar); !ok || v != "true" {
		t.Fatalf("unexpected lookup result %q %v", v, ok)
	}
}

func TestWithOverrides(t *testing.T) {
	base := MapEnvironment(map[string]string{"A": "base", LocalDevelopmentVar: "false"})
	env := WithOverrides(base, map[string]string{LocalDevelopmentVar: "true"})

	if !env.IsLocalDevelopment() {
		t.Fatalf("expected override to enable local development")
	}
	if v, _ := env.Lookup("A"); v != "base" {
		t.Fatalf("expected base value, got %q", v)
	}
	if WithOverrides(base, nil) != base {
		t.Fatalf("expected base to be returned unchanged without overrides")
	}
	if !WithOverrides(nil, map[string]string{LocalDevelopmentVar: "true"}).IsLocalDevelopment() {
		t.Fatalf("expected overrides alone to form an environment")
	}
}
