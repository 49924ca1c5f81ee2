// Package dataset prepares Gaussian-splatting datasets and renders: frame sampling, panorama camera
// merging, COLMAP text model fixes, image conversion and per-camera videos.
//
// Multi-file operations run on the step pipeline through the jobs package. Per-file failures are
// counted in the returned report and never abort the whole job.
package dataset
