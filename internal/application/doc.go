// Package application wires the settings resolver, the resolved-site
// storage and the inspection API into an HTTP server. Every site is
// resolved once when the application is built; the server only reads the
// frozen results.
package application
