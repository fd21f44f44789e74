package envfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
)

// Write atomically replaces path with vars in sorted KEY="VALUE" form and
// mode 0600. header lines are written as comments.
func Write(path string, vars map[string]string, header ...string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}

	var buf bytes.Buffer
	for _, line := range header {
		fmt.Fprintf(&buf, "# %s\n", line)
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		if !keyPattern.MatchString(k) {
			return fmt.Errorf("invalid key %q", k)
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		fmt.Fprintf(&buf, "%s=%s\n", k, quote(vars[k]))
	}

	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Chmod(path, 0o600)
}

// quote leaves simple values bare and double-quotes everything else.
func quote(value string) string {
	if value != "" && !strings.ContainsAny(value, " \t\n\"'\\$`#=;&|<>(){}*?!~") {
		return value
	}
	return strconv.Quote(value)
}
