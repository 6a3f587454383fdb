// Package l3locate owns Layer 3 (Localization) of the arena data model.
//
// Responsibilities: turning one cropped frame and the reference image into
// a subject position, via a thresholded difference map and its
// intensity-weighted centroid, optionally weighted toward a prior position.
// Key types: Params, Method, Position, Result.
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
package l3locate
