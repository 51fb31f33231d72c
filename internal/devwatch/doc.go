// Package devwatch waits for USB printer device nodes to appear.
//
// When a run targets a character device that is not plugged in yet, Wait
// listens for udev netlink add events on the usbmisc subsystem and returns as
// soon as the configured node shows up. Without netlink access it falls back
// to polling the filesystem.
package devwatch
