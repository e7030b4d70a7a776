// Package pdf reads the text layout of PDF pages and destructively redacts
// regions of them.
//
// Pages are parsed with pdfcpu. Text positions come from interpreting the
// page content stream: the text state operators, font metrics and ToUnicode
// maps give every glyph a box in user space. Redaction rewrites only the
// show-text operators that draw a removed glyph, replacing each such glyph by
// an equivalent positioning adjustment, then paints the redacted regions on
// top. Form XObjects are followed through Do; a form that loses glyphs is
// copied for the page that draws it, so other pages keep the original.
package pdf
