// Package store persists JSON documents on the local filesystem.
//
// Writes go to a sibling temporary file that is fsynced and renamed over the
// destination, so readers observe either the previous complete document or
// the new one. Reads distinguish a missing file (services.ErrNotFound) from a
// file that exists but does not parse (services.ErrCorruptData); callers pick
// their own degradation policy. Nothing in this package retries.
//
// Skeleton and Bootstrap seed the directory layout and default documents a
// data root needs before the first pipeline run.
package store
