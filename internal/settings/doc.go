// Package settings resolves the layered configuration of one site of a
// multi-site deployment. Fragments are applied in a fixed order: the common
// fragment, the local development fragment (only when IS_DDEV_PROJECT is
// "true"), the post fragment, and finally the site entry with its config
// sync directory and database overrides. Missing fragments are skipped and
// each fragment is applied at most once per resolution. The result is a
// frozen Settings value.
package settings
