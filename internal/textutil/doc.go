// Package textutil provides small text helpers shared by the analyzers, the
// article generator and the publisher.
//
// StripMarkup turns forum post markup into plain text: tags are removed,
// entities decoded and line breaks preserved, so quote links such as
// "&gt;&gt;123" become ">>123". Truncate shortens display text on rune
// boundaries. SanitizeToken produces filesystem-safe path segments.
package textutil
