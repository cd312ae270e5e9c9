// Package publish merges analyzer results and classification history into
// the public snapshot read by the display layer.
//
// Every section is recomputed from its source on each publish. A missing
// source yields an empty section; an unreadable one yields an empty section
// and an error log. Publishing itself fails only when the snapshot cannot be
// written.
package publish
