// Package diag defines the diagnostic model shared by rules, the analysis
// worker, the lint cache, and the editor surface.
//
// # Purpose
//
//   - Provide deterministic, serialisable records for findings produced by
//     prose rules, local or remote.
//   - Offer a bounded collector (Bag) so producers can emit findings without
//     coupling to storage or rendering layers.
//
// # Coordinates
//
// Positions are zero-based document coordinates: Line counts lines from the
// top of the document, Col counts runes from the start of the line. End
// positions are exclusive. Conversions to one-based editor or wire
// coordinates happen at the boundary that speaks that protocol, never here.
//
// # Scope
//
// Package diag performs no formatting or IO. Rendering lives in
// internal/diagfmt, persistence in internal/lint.
package diag
