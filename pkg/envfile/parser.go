// Package envfile reads and writes shell-style KEY=VALUE environment files.
package envfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SyntaxError reports a malformed line.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Parse parses a shell-style env file and returns key-value pairs.
func Parse(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	vars, err := ParseReader(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vars, nil
}

// ParseReader parses env content. It handles:
//   - KEY=VALUE, optionally prefixed with "export "
//   - KEY="VALUE" with Go/shell escapes and KEY='VALUE' taken literally
//   - comments (lines starting with #) and empty lines
//   - values containing = signs (only the first = is the delimiter)
//
// Lines without "=" or with an invalid key are a *SyntaxError.
func ParseReader(r io.Reader) (map[string]string, error) {
	vars := make(map[string]string)
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, &SyntaxError{Line: lineNo, Msg: "expected KEY=VALUE"}
		}
		key = strings.TrimSpace(key)
		if !keyPattern.MatchString(key) {
			return nil, &SyntaxError{Line: lineNo, Msg: fmt.Sprintf("invalid key %q", key)}
		}

		value, err := unquote(strings.TrimSpace(value))
		if err != nil {
			return nil, &SyntaxError{Line: lineNo, Msg: fmt.Sprintf("%s: %v", key, err)}
		}
		vars[key] = value
	}

	return vars, scanner.Err()
}

func unquote(value string) (string, error) {
	if len(value) == 0 {
		return value, nil
	}
	switch value[0] {
	case '"':
		if len(value) < 2 || value[len(value)-1] != '"' {
			return "", fmt.Errorf("unterminated double quote")
		}
		return strconv.Unquote(value)
	case '\'':
		if len(value) < 2 || value[len(value)-1] != '\'' {
			return "", fmt.Errorf("unterminated single quote")
		}
		return value[1 : len(value)-1], nil
	}
	return value, nil
}
