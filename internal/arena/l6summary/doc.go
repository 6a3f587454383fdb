// Package l6summary owns Layer 6 (Summaries) of the arena data model.
//
// Responsibilities: resolving time bins, aggregating distance, region
// occupancy and crossing counts per bin, broadcasting bin aggregates back
// onto trajectory rows, and accumulating summaries across a batch.
// Key types: Spec, Bin, Row, FrameRow, Accumulator.
//
// Dependency rule: L6 may depend on L1-L5.
// No SQL/database code is allowed in this package.
package l6summary
