// Package transport delivers raw ESC/POS bytes to a printer.
//
// A Printer opens a Handle for a named target; the handle runs one
// BeginJob/Write/EndJob cycle per transmission unit and is then closed.
// Implementations cover CUPS raw queues (via lp), character devices such as
// /dev/usb/lp0, capture files, and raw TCP printers. AcquireLock guards a
// printer so only one run drives it at a time.
//
// Every failure is tagged with failures.ErrTransport and is never retried.
package transport
