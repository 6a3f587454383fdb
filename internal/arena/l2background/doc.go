// Package l2background owns Layer 2 (Background) of the arena data model.
//
// Responsibilities: building the static reference image a run subtracts
// from every frame, as the per-pixel median of randomly sampled frames.
// Key types: Options.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2background
