// Package backup runs one selective backup from a source tree into an
// extension-partitioned destination.
//
// # Run Phases
//
// [Run] moves through a fixed sequence of phases:
//
//	Init -> AcquireSnapshot -> ScanAndCopy -> ScanArchives -> ReleaseSnapshot -> Finalize
//
// AcquireSnapshot only happens when [Options.UseSnapshot] is set and never
// blocks the run: when the platform cannot take a snapshot the reason is
// recorded in the statistics and the live tree is scanned instead. A snapshot
// that was created is released exactly once on every exit path, including
// cancellation and the fatal missing-source error.
//
// ScanArchives only happens with [Options.IncludeArchives]. It scans the
// source a second time for archive files and routes every wanted entry
// through the same destination and conflict rules as plain files.
//
// # Destination Layout
//
//	<destination>/
//	└── {extension}/
//	    └── {relative path}/
//	        └── {file}
//
// Files without an extension land in the "_no_ext" folder. Existing content
// is never overwritten: identical files are skipped and different files are
// written under a numbered sibling name.
//
// # Errors
//
// Only a missing source root under the strict policy is returned as an
// error. Everything else (denied files, copy failures, corrupt archives,
// unavailable snapshots) is absorbed into the statistics and reported
// through the log callback.
//
// # Cancellation
//
// The cancellation predicate and the context are polled before each file
// and each archive entry. Copies already in progress finish. A cancelled run
// is a successful partial run with [stats.Summary.Cancelled] set.
package backup
