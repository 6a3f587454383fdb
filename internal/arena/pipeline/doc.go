// Package pipeline runs one video segment end to end: reference image,
// trajectory, region membership, crossings and binned summaries. It also
// drives batches of videos and writes the tabular exports.
//
// The pipeline opens at most one frame source at a time and closes it on
// every return path.
package pipeline
