// Package launcher runs Gaussian-splatting entry points such as Grendel-GS render.py
// inside a conda environment.
//
// The renderer is treated as an opaque process: the dataset and model paths, the batch size and
// any extra arguments are forwarded unchanged, and the renderer's exit status becomes the result
// of the launch. Activation is delegated to conda itself, either by sourcing its shell profile and
// running `conda activate` or through `conda run`.
package launcher
