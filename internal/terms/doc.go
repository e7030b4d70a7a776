// Package terms turns raw user input and recognizer output into the ordered,
// de-duplicated term set that drives both text and document redaction.
//
// Ordering matters: a TermSet is always sorted longest first, so a matcher that
// prefers the earliest-listed term at a position also prefers the longest
// phrase ("Alan Ngouenet" before "Alan").
package terms
