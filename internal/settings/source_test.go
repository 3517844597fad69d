package settings

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func memFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, content := range files {
		if err := afero.WriteFile(fsys, "/"+name, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return fsys
}

func TestFileSourceLookup(t *testing.T) {
	t.Parallel()

	src := NewFileSourceFs(memFs(t, map[string]string{
		"sites/common_settings/common.settings.yml": "settings: {a: 1}\n",
	}))

	data, found, err := src.Lookup("sites/common_settings/common.settings.yml")
	if err != nil || !found {
		t.Fatalf("expected fragment, found=%v err=%v", found, err)
	}
	if string(data) != "settings: {a: 1}\n" {
		t.Fatalf("unexpected content %q", data)
	}

	if _, found, err := src.Lookup("sites/default/settings.ddev.yml"); err != nil || found {
		t.Fatalf("expected absent fragment without error, found=%v err=%v", found, err)
	}

	if _, found, err := src.Lookup("sites/common_settings"); err != nil || found {
		t.Fatalf("expected directories to be reported absent, found=%v err=%v", found, err)
	}
}

func TestFileSourceDiscoverSites(t *testing.T) {
	t.Parallel()

	src := NewFileSourceFs(memFs(t, map[string]string{
		"sites/common_settings/common.settings.yml": "",
		"sites/common_settings/post.settings.yml":   "",
		"sites/default/settings.yml":                "",
		"sites/default/settings.ddev.yml":           "",
		"sites/turkey/settings.yml":                 "",
		"sites/ecuador/settings.yml":                "",
		"sites/ecuador/files/readme.txt":            "",
	}))

	got, err := src.DiscoverSites(DefaultLayout())
	if err != nil {
		t.Fatalf("DiscoverSites returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"default", "ecuador", "turkey"}, got); diff != "" {
		t.Fatalf("unexpected sites (-want +got):\n%s", diff)
	}
}

func TestResolveFromFileSource(t *testing.T) {
	t.Parallel()

	src := NewFileSourceFs(memFs(t, map[string]string{
		"sites/common_settings/common.settings.yml": commonFragment,
		"sites/common_settings/post.settings.yml":   postFragment,
		"sites/ecuador/settings.yml":                string(siteEntry("ecuador")),
	}))

	got, err := newTestResolver(t, src).Resolve("ecuador", ddevEnv())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got.ConfigSyncDirectory() != "../config_ecuador/default" {
		t.Fatalf("unexpected config sync directory %s", got.ConfigSyncDirectory())
	}
	if name := databaseName(t, got); name != "ecuador_db" {
		t.Fatalf("expected ecuador_db, got %s", name)
	}
}

func TestMapSourceReturnsCopies(t *testing.T) {
	t.Parallel()

	src := MapSource{"a.yml": []byte("x")}
	data, found, _ := src.Lookup("./a.yml")
	if !found {
		t.Fatalf("expected cleaned path lookup to succeed")
	}
	data[0] = 'y'
	again, _, _ := src.Lookup("a.yml")
	if string(again) != "x" {
		t.Fatalf("expected source content to be unchanged, got %q", again)
	}
}
