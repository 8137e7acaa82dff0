// Package logging wraps the standard log package with component-scoped
// prefixes, matching a plain log.Printf style rather than a structured
// logging library. Room-scoped lines carry the room code in the message
// text.
package logging

import (
	"log"
	"os"
)

// ForComponent returns a *log.Logger prefixed with the component name,
// e.g. "[store] ".
func ForComponent(name string) *log.Logger {
	return log.New(os.Stderr, "["+name+"] ", log.LstdFlags)
}
