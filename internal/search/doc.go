// Package search implements a hybrid CPU/GPU file search engine. It walks
// a directory tree, filters candidates by name, extension, size and date,
// matches a content pattern against file bodies, and decides per batch
// whether matching runs on CPU workers or is offloaded to a GPU device.
//
// Per-file and per-directory failures never abort a search: unreadable
// entries are counted and skipped, and a lost GPU degrades transparently
// to CPU matching.
package search
