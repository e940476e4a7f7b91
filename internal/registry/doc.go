// Package registry is the read-only resource store behind every build. It
// scans a core root plus zero or more priority-ordered overlay roots
// (expansion packs), reads every resource verbatim into an immutable
// Snapshot, and answers Locate and ListAgents queries against it. Overlay
// roots strictly shadow lower-priority roots for the same resource id.
package registry
