// Package render draws run outputs: the trajectory over the reference
// image, an occupancy heatmap, and per-bin charts. Nothing in the tracking
// layers depends on it.
package render
