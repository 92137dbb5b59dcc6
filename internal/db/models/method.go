package models

// Writer identities with special meaning to the merge rules. Every other
// method label (ui, scheduler, ...) is an opaque owner tag.
const (
	// MethodAutoconf is the privileged writer allowed to mutate or delete
	// rows owned by any other method.
	MethodAutoconf = "autoconf"

	// MethodDefault is reported for projected values that fall back to a
	// setting's default; it never appears in stored rows.
	MethodDefault = "default"
)
