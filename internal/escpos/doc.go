// Package escpos holds the ESC/POS command vocabulary thermalsub emits and the
// directive encoder that turns one physical subtitle line into printer bytes.
//
// Directives are literal bracket tokens ([b], [/b], [center], [pagefeed],
// [size=N]) replaced byte-for-byte with fixed command sequences. The encoder is
// stateless: it never tracks whether bold or centering is active, and it reports
// the number of filler lines an enlarged font needs instead of emitting them.
package escpos
