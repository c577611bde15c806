package http

import (
	"fmt"
	"strings"
)

// Command is the first segment of a request path.
type Command string

const (
	CommandMkdir  Command = "mkdir"
	CommandRead   Command = "read"
	CommandWrite  Command = "write"
	CommandRemove Command = "remove"
	CommandMkdocx Command = "mkdocx"
)

// Commands lists every command the dispatcher accepts.
var Commands = []Command{CommandMkdir, CommandRead, CommandWrite, CommandRemove, CommandMkdocx}

// UnknownCommandError is returned for a first path segment that names no
// command.
type UnknownCommandError struct {
	Command string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Command)
}

// ParseCommand matches word exactly and case-sensitively.
func ParseCommand(word string) (Command, error) {
	for _, cmd := range Commands {
		if string(cmd) == word {
			return cmd, nil
		}
	}
	return "", &UnknownCommandError{Command: word}
}

// splitRequestPath separates "/read/a/b.txt" into "read" and "a/b.txt".
// A bare "/mkdir" yields an empty path.
func splitRequestPath(urlPath string) (word, path string) {
	word, path, _ = strings.Cut(strings.TrimPrefix(urlPath, "/"), "/")
	return word, path
}
