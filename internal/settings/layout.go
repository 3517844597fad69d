package settings

import (
	"fmt"
	"strings"
)

// Layout holds the conventional fragment locations and naming rules of a
// multi-site deployment. Patterns take the site directory or short name as
// their single %s argument.
type Layout struct {
	CommonFragment      string
	PostFragment        string
	LocalDevPattern     string
	SiteEntryPattern    string
	ConfigSyncPattern   string
	DatabaseNamePattern string
}

// DefaultLayout returns the layout used by every site of the deployment.
func DefaultLayout() Layout {
	return Layout{
		CommonFragment:      "sites/common_settings/common.settings.yml",
		PostFragment:        "sites/common_settings/post.settings.yml",
		LocalDevPattern:     "sites/%s/settings.ddev.yml",
		SiteEntryPattern:    "sites/%s/settings.yml",
		ConfigSyncPattern:   "../config_%s/default",
		DatabaseNamePattern: "%s_db",
	}
}

func (l Layout) LocalDevPath(site string) string {
	return fmt.Sprintf(l.LocalDevPattern, site)
}

func (l Layout) SiteEntryPath(site string) string {
	return fmt.Sprintf(l.SiteEntryPattern, site)
}

// ConfigSyncDirectory is the config export directory for a site short name.
func (l Layout) ConfigSyncDirectory(shortName string) string {
	return fmt.Sprintf(l.ConfigSyncPattern, shortName)
}

// DatabaseName is the local development database for a site short name.
func (l Layout) DatabaseName(shortName string) string {
	return fmt.Sprintf(l.DatabaseNamePattern, shortName)
}

// ValidateSite rejects identifiers that are empty or would escape sites/.
func ValidateSite(site string) error {
	if strings.TrimSpace(site) == "" {
		return ErrEmptySite
	}
	if site == "." || site == ".." || strings.ContainsAny(site, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidSite, site)
	}
	return nil
}
