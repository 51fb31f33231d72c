package escpos

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Control bytes.
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	LF  byte = '\n'
)

// MaxCharSize is the largest [size=N] level the printer accepts.
const MaxCharSize = 8

// ImageModeSingleDensity is the ESC * mode used for 8-dot image bands.
const ImageModeSingleDensity byte = 0x00

// Reset returns ESC @.
func Reset() []byte { return []byte{ESC, '@'} }

// BoldOn returns ESC E 01.
func BoldOn() []byte { return []byte{ESC, 'E', 0x01} }

// BoldOff returns ESC E 00.
func BoldOff() []byte { return []byte{ESC, 'E', 0x00} }

// Center returns ESC a 01.
func Center() []byte { return []byte{ESC, 'a', 0x01} }

// PageFeed returns ESC d 05.
func PageFeed() []byte { return []byte{ESC, 'd', 0x05} }

// LineSpacing16 returns ESC 3 10, a 16-dot line pitch.
func LineSpacing16() []byte { return []byte{ESC, '3', 0x10} }

// EntryPrefix returns the reset and line-spacing pair every subtitle entry
// starts with.
func EntryPrefix() []byte {
	out := make([]byte, 0, 5)
	out = append(out, Reset()...)
	return append(out, LineSpacing16()...)
}

// CharSize returns GS ! n for a uniform scale level 1..8. The parameter packs
// level-1 into both nibbles.
func CharSize(level int) ([]byte, error) {
	if level < 1 || level > MaxCharSize {
		return nil, fmt.Errorf("character size %d out of range 1..%d", level, MaxCharSize)
	}
	n := byte(level - 1)
	return []byte{GS, '!', n<<4 | n}, nil
}

// ImageHeader returns ESC * m nL nH for a band width of dots columns.
func ImageHeader(dots int) []byte {
	out := []byte{ESC, '*', ImageModeSingleDensity, 0, 0}
	binary.LittleEndian.PutUint16(out[3:], uint16(dots))
	return out
}

// Printable renders a command stream as human-readable text: known commands
// are dropped, image bands collapse to a marker, and line feeds become " | ".
// It is meant for previews and logs, not for round-tripping.
func Printable(data []byte) string {
	var b strings.Builder
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case c == ESC && i+1 < len(data):
			switch data[i+1] {
			case '@':
				i++
			case 'E', 'a', 'd', '3':
				i += 2
			case '*':
				if i+4 < len(data) {
					width := int(binary.LittleEndian.Uint16(data[i+3 : i+5]))
					i += 4 + width
					b.WriteString("[image]")
				} else {
					i = len(data)
				}
			default:
				i++
			}
		case c == GS && i+1 < len(data) && data[i+1] == '!':
			i += 2
		case c == LF:
			b.WriteString(" | ")
		case c >= 0x20 && c < 0x7F:
			b.WriteByte(c)
		}
	}
	return strings.TrimSpace(b.String())
}
