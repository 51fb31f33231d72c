// Package playback drives merged units to the printer in real time.
//
// A Player anchors a reference instant once, then for each unit waits until
// reference+offset and performs one Open/BeginJob/Write/EndJob/Close cycle.
// Waits are recomputed from the clock on every unit so processing time never
// accumulates as drift. Units that are already late are sent immediately.
// Context cancellation interrupts waits only; a job that has started always
// runs to completion.
package playback
