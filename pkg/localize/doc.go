// Package localize supplies the pre-resolved, user-displayable strings
// that error values in this module carry: titles, messages and UI
// fallbacks such as the "unknown" service-provider name.
//
// Translations are embedded YAML bundles, one file per language, flattened
// to dotted keys ("error.auth.connection.title"). Language negotiation
// follows Accept-Language semantics via golang.org/x/text. Unknown keys
// fall back to the default language and finally to the key itself, so a
// missing translation shows up as a literal key instead of an empty
// dialog.
package localize
