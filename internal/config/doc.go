// Package config loads the service configuration of the settings inspector
// from a YAML file, environment variables and CLI flags, with precedence
// CLI flags > Environment variables > YAML config > Defaults. It covers where
// the deployment root lives, which sites to resolve and the HTTP server
// settings; the site settings themselves are resolved by package settings.
package config
