// Package l4tracks owns Layer 4 (Tracks) of the arena data model.
//
// Responsibilities: driving the localizer frame by frame, feeding each
// centroid back as the next frame's prior, measuring frame-to-frame
// distance, and truncating the trajectory at the first unreadable frame.
// Key types: Tracker, Trajectory, Row.
//
// Dependency rule: L4 may depend on L1-L3, but never on L5 or L6.
// No SQL/database code is allowed in this package.
package l4tracks
