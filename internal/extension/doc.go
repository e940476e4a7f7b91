// Package extension discovers expansion packs: overlay roots that layer
// their own agents, teams, and resources over the core tree. It reads each
// pack's config.yaml, orders packs by priority, checks core compatibility,
// and turns a resolution order into the source list a snapshot is built
// from.
package extension
