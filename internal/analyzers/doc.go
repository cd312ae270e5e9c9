// Package analyzers runs cheap, deterministic scans over a thread selection.
//
// Every Analyzer is a pure function of its input and returns one aggregate
// Result per run. Runner persists those results through the store under
// <analysis>/<name>/results.json, newest run first, dropping runs beyond the
// retention limit. A failing analyzer is logged and does not stop the others.
//
// Shipped analyzers:
//   - keyword: whole-word term tracking across opening posts and replies
//   - get: posts whose number ends in repeating digits, ranked by "check" replies
//   - reply: posts ranked by how many replies quote them
package analyzers
