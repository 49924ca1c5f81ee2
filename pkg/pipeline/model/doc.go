// Package model holds the types shared by the pipeline and its options:
// step descriptions, typed steps and the hooks a pipeline option implements.
package model
