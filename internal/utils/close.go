package utils

import "io"

// Close closes c and ignores any error.
// Use for best-effort cleanup in defer where error handling is not critical,
// such as response and result bodies that were fully read.
func Close(c io.Closer) {
	_ = c.Close()
}
