// Package build drives a full build: it loads one snapshot per scope (core,
// then each expansion pack layered over core), enumerates every agent and
// team target, resolves and serializes each one concurrently, writes the
// artifacts, and collects a per-target report.
//
// A failing target never stops the others. The report, not the returned
// error, says whether the build succeeded; Run only returns an error for
// problems that prevent building at all, such as an unreadable core root
// or an ill-formed source list.
package build
