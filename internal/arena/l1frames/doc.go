// Package l1frames owns Layer 1 (Frames) of the arena data model.
//
// Responsibilities: the grayscale frame representation, the pull-based
// frame source contract, and crop boxes applied identically to every frame
// and to the reference image.
// Key types: Source, SeekSource, Crop, SliceSource.
//
// Dependency rule: L1 depends on nothing else in internal/arena.
// Video decoding lives in the capture package, which implements SeekSource.
package l1frames
