// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the scheduling logic: the scheduling state table, the append-only
// review log, and read-only views of cards and API keys owned by other
// parts of the application.
package store
