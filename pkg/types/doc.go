// Package types defines the value model, the predicate and target algebra,
// the backend interfaces, and the standard errors of the asset version store.
//
// Snapshots are immutable, versioned copies of a media package document.
// Properties are namespaced, typed annotations attached to a media package
// as a whole; they are not versioned. Predicates and targets are closed sum
// types: every backend matches them exhaustively.
package types
