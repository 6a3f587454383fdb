// Package l5regions owns Layer 5 (Regions) of the arena data model.
//
// Responsibilities: rasterizing user polygons into per-pixel masks,
// evaluating per-frame membership of a trajectory in each region, and
// turning membership transitions into paired crossing events.
// Key types: Region, Mask, Evaluator, Membership, Crossing.
//
// Dependency rule: L5 may depend on L1-L4, but never on L6.
// No SQL/database code is allowed in this package.
package l5regions
