// Package script lays out subtitle records as a flat, time-ordered sequence of
// printer fragments.
//
// Each physical line of a subtitle becomes either image bands ([img=PATH]), a
// manual form feed ([pagefeed] on its own line), or an encoded text line
// followed by any filler slots its font size needs. Only the first fragment of
// an entry carries the printer reset prefix.
package script
