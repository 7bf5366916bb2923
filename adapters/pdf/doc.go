// Package reportpdf implements report.Canvas on top of go-pdf/fpdf.
//
// Pages are measured in millimetres with the helvetica core font; text is
// translated to cp1252 before it is measured or drawn so that widths match the
// glyphs that end up in the document.
package reportpdf
