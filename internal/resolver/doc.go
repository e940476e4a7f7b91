// Package resolver expands an entry's dependency manifest into the ordered,
// deduplicated list of resources its bundle carries.
//
// The walk is depth-first over a build-scoped [registry.Store]. Categories
// are visited in [registry.Priority] order and names in declaration order,
// so resolving an unchanged tree twice yields the same order. Missing
// references, cycles, and malformed nested manifests are collected in
// [Result.Errors]; none of them stop the walk.
package resolver
