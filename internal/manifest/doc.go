// Package manifest extracts build entries and dependency manifests from raw
// resource content. Agents carry an embedded ```yaml block, teams are YAML
// files, and ordinary resources may declare dependencies in YAML front matter
// or a top-level dependencies key. Every structured block is validated
// against an embedded JSON schema that closes the set of dependency
// categories; violations surface as *ParseError.
package manifest
