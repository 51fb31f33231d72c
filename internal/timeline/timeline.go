// Package timeline holds timestamped printer fragments and the two passes that
// prepare them for playback: latency compensation and same-instant merging.
package timeline

import (
	"time"

	"thermalsub/internal/escpos"
)

// DefaultLookahead is the number of fragment slots output is pulled forward to
// hide printer and spooler latency.
const DefaultLookahead = 3

// Fragment is one timed printer payload. Time is the offset from the start of
// playback at which Data should be delivered.
type Fragment struct {
	Time time.Duration
	Data []byte
}

// Blank returns a fragment holding a single line feed.
func Blank(at time.Duration) Fragment {
	return Fragment{Time: at, Data: []byte{escpos.LF}}
}

// Compensate shifts every fragment's time to the time of the fragment slots
// positions earlier, treating the slots before the first fragment as time zero.
// The slots timestamps left over are appended as blank line fragments, so the
// result has len(frags)+slots entries. The input is not modified.
func Compensate(frags []Fragment, slots int) []Fragment {
	if slots <= 0 {
		return clone(frags)
	}
	delay := make([]time.Duration, slots, slots+1)
	out := make([]Fragment, 0, len(frags)+slots)
	for _, f := range frags {
		delay = append(delay, f.Time)
		out = append(out, Fragment{Time: delay[0], Data: f.Data})
		delay = delay[1:]
	}
	for _, at := range delay {
		out = append(out, Blank(at))
	}
	return out
}

// Merge concatenates runs of adjacent fragments that share a timestamp into a
// single unit, preserving order. Merging an already merged sequence returns an
// equal sequence. The input is not modified.
func Merge(frags []Fragment) []Fragment {
	if len(frags) == 0 {
		return nil
	}
	out := make([]Fragment, 0, len(frags))
	cur := Fragment{Time: frags[0].Time, Data: append([]byte(nil), frags[0].Data...)}
	for _, f := range frags[1:] {
		if f.Time == cur.Time {
			cur.Data = append(cur.Data, f.Data...)
			continue
		}
		out = append(out, cur)
		cur = Fragment{Time: f.Time, Data: append([]byte(nil), f.Data...)}
	}
	return append(out, cur)
}

// Prepare runs Compensate then Merge.
func Prepare(frags []Fragment, slots int) []Fragment {
	return Merge(Compensate(frags, slots))
}

// Sorted reports whether fragment times never decrease.
func Sorted(frags []Fragment) bool {
	for i := 1; i < len(frags); i++ {
		if frags[i].Time < frags[i-1].Time {
			return false
		}
	}
	return true
}

// TotalBytes sums the payload sizes.
func TotalBytes(frags []Fragment) int {
	n := 0
	for _, f := range frags {
		n += len(f.Data)
	}
	return n
}

func clone(frags []Fragment) []Fragment {
	out := make([]Fragment, len(frags))
	copy(out, frags)
	return out
}
