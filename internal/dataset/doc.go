// Package dataset loads the prescription files behind the dashboard.
//
// The primary long-format file is chosen from an ordered candidate list:
// the first file that exists wins, and if that file is corrupt the load
// fails with a *LoadError rather than falling through to the next
// candidate. ErrNoDatasetFound means no candidate exists at all.
//
// Supporting files (monthly summary, forecast, geo enrichment) are
// optional. LoadOptional reports an absent file with found=false and no
// error; a present but corrupt file is still a *LoadError.
//
// Parsed files are memoized in a Cache keyed by resolved path. Nothing is
// evicted implicitly: Loader.Invalidate and Repository.Reload are the only
// ways to pick up changes on disk.
package dataset
