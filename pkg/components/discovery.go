package components

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Pre-compiled regex patterns for parsing installer script headers
var (
	nameRe      = regexp.MustCompile(`^COMPONENT_NAME="([^"]+)"`)
	modesRe     = regexp.MustCompile(`^COMPONENT_MODES="([^"]*)"`)
	serviceRe   = regexp.MustCompile(`^COMPONENT_SERVICE="([^"]*)"`)
	requiresRe  = regexp.MustCompile(`^COMPONENT_REQUIRES="([^"]*)"`)
	headerRe    = regexp.MustCompile(`^#\s*(\S+)\s+[Ii]nstaller`)
	descRe      = regexp.MustCompile(`^#\s+([A-Z].+)$`)
	separatorRe = regexp.MustCompile(`^#[=\-]*$|^#\s*$`)
)

// maxHeaderLines bounds how much of each script is scanned.
const maxHeaderLines = 50

// Discover scans dir for component installer scripts and returns a catalog.
// Scripts without COMPONENT_NAME and files starting with "_" are ignored.
func Discover(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("components directory not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("components path is not a directory: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read components directory: %w", err)
	}

	catalog := NewCatalog()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sh") || strings.HasPrefix(name, "_") {
			continue
		}

		comp, err := ParseScript(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if comp != nil {
			catalog.Add(*comp)
		}
	}

	return catalog, nil
}

// ParseScript extracts component metadata from an installer script header.
// Returns (nil, nil) if the script doesn't declare COMPONENT_NAME.
func ParseScript(path string) (*Component, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer file.Close()

	comp := &Component{ScriptPath: path}

	scanner := bufio.NewScanner(file)
	lineNum := 0
	lookingForDesc := false

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++

		switch {
		case nameRe.MatchString(line):
			comp.Name = strings.TrimSpace(nameRe.FindStringSubmatch(line)[1])
		case modesRe.MatchString(line):
			comp.Modes = fields(modesRe.FindStringSubmatch(line)[1])
		case serviceRe.MatchString(line):
			comp.Service = strings.TrimSpace(serviceRe.FindStringSubmatch(line)[1])
		case requiresRe.MatchString(line):
			comp.Requires = fields(requiresRe.FindStringSubmatch(line)[1])
		case headerRe.MatchString(line):
			comp.DisplayName = headerRe.FindStringSubmatch(line)[1]
			lookingForDesc = true
			continue
		}

		if lookingForDesc {
			if separatorRe.MatchString(line) {
				continue
			}
			if matches := descRe.FindStringSubmatch(line); len(matches) > 1 && !strings.HasPrefix(matches[1], "http") {
				comp.Description = strings.TrimSpace(matches[1])
			}
			lookingForDesc = false
		}

		if lineNum > maxHeaderLines {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading script %s: %w", path, err)
	}

	if comp.Name == "" {
		return nil, nil
	}
	if comp.DisplayName == "" {
		comp.DisplayName = comp.Name
	}

	return comp, nil
}

// fields splits a space or comma separated list.
func fields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
