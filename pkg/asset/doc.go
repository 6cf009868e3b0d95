// Package asset is the organization-scoped entry point of the asset version
// store. A Store wraps a backend; ForOrganization yields a Scoped handle whose
// Select and Delete builders compose predicates and targets into queries.
//
// Builders are immutable: every chain method returns a new query and leaves
// the receiver untouched, so a partially built query may be shared and
// extended from several goroutines. Decorators wrap a query without breaking
// the chain; see SelectDecorator and DeleteDecorator.
package asset
