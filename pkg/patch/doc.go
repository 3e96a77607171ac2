// Package patch parses unified diff text and applies it to files with
// whole-diff atomicity.
//
// A diff may touch several files; either every hunk of every patch applies
// cleanly and all results are committed, or every touched file is restored
// to its exact pre-call state. Context and delete lines are verified
// byte-for-byte against the current content, which matters when the diff
// text comes from a language model and cannot be trusted to line up with
// what is actually on disk.
package patch
