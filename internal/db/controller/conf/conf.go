// Package conf reconciles submitted desired-state configuration into the
// store (merge engine) and reconstructs the effective per-service view from
// the stored layers (projection engine).
//
// Every stored value row is owned by the method label of the writer that
// submitted it. A writer's save retires all of its previous rows first, so
// retries are idempotent. Only the owning method or the privileged autoconf
// method may mutate a row.
package conf

import (
	"errors"
)

// Reserved setting keys steering the merge of a submitted configuration.
const (
	// KeyMultisite selects multisite mode when set to "yes".
	KeyMultisite = "MULTISITE"
	// KeyServerName lists the space-separated service names of a submission.
	KeyServerName = "SERVER_NAME"

	multisiteEnabled = "yes"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrMethodEmpty is returned when a save carries no writer identity.
	ErrMethodEmpty = errors.New("method cannot be empty")
)

// Value is a projected setting value together with the method owning it.
// Values falling back to a setting default report models.MethodDefault.
type Value struct {
	Value  string `json:"value"`
	Method string `json:"method"`
}
