// Package raster converts decoded images into ESC/POS 8-dot image bands.
//
// An image is scaled for the printer's anisotropic dot pitch, inverted so a set
// bit means ink, reduced to one bit per pixel, centered on a canvas exactly as
// wide as the print head, and transposed into the column-major order the
// ESC * command expects. Each 8-dot band becomes one fragment.
package raster
