// Package symbol turns link text into a QR code and draws it, either as a
// monochrome raster persisted to disk or as text in a terminal.
//
// The raster mapping is exact: every module becomes a scale×scale block of
// uniform pixels and the border is always light.
package symbol
