// Package main provides the entry point for the GoProxyGuard configuration
// store. Independent writers (interactive UI, autoconf agent, scheduler,
// external plugin manifests) submit full or partial desired-state
// configuration which the store reconciles into one consistent, queryable
// view using gorm for data persistence. Row ownership is tracked per writer
// so submissions never clobber each other's intent.
package main
