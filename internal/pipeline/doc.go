// Package pipeline implements the analyze job: bootstrap the data root, load
// the corpus, select threads, run analyzers and the article generator, record
// classification history, and publish the snapshot.
//
// Each run holds a cross-process file lock on the data root so a manual CLI
// run and the daemon never write the same files at once.
package pipeline
