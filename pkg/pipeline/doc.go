// Package pipeline runs dataset jobs as a graph of concurrent steps.
//
// A job is built from a root step that produces work items, any number of intermediate steps that
// transform them, optional mergers that fan several branches into one channel and a sink that
// consumes the final items. Every step communicates through channels, so a slow step only holds
// back its own inputs while the rest of the graph keeps moving. Steps can run several workers
// with StepConcurrency.
//
// The pipeline stops on the first error. The shared context is cancelled, every step returns and
// Run reports the failing step by name.
//
// Pipeline options (see the model package) observe the graph as it is built and every item that
// moves through it. The measure and drawer packages use this to time each step and to write a
// DOT picture of the job.
package pipeline
