package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/jaspreet-dot-casa/uinstall/pkg/system"
)

const dialTimeout = 5 * time.Second

// Options selects which requirements are enforced.
type Options struct {
	Platforms        []string // Allowed GOOS values, empty allows any
	RequireRoot      bool
	MinDiskGB        int
	DiskPath         string // Free space is measured on the filesystem holding this path
	RequiredTools    []string
	ConnectivityHost string // host:port, empty skips the check
}

// Checker runs pre-flight checks.
type Checker struct {
	opts     Options
	runner   system.Runner
	platform string
	euid     func() int
	diskFree func(path string) (uint64, error)
	dial     func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewChecker creates a Checker using the real system.
func NewChecker(opts Options, runner system.Runner) *Checker {
	dialer := &net.Dialer{Timeout: dialTimeout}
	return &Checker{
		opts:     opts,
		runner:   runner,
		platform: runtime.GOOS,
		euid:     os.Geteuid,
		diskFree: freeBytes,
		dial:     dialer.DialContext,
	}
}

// Run executes every check in a fixed order.
func (c *Checker) Run(ctx context.Context) []Check {
	checks := []Check{
		c.checkPlatform(),
		c.checkPrivilege(),
		c.checkDisk(),
	}
	for _, tool := range c.opts.RequiredTools {
		checks = append(checks, c.checkTool(tool))
	}
	checks = append(checks, c.checkConnectivity(ctx))
	return checks
}

func (c *Checker) checkPlatform() Check {
	check := Check{ID: IDPlatform, Name: "Platform"}
	if len(c.opts.Platforms) == 0 || slices.Contains(c.opts.Platforms, c.platform) {
		check.Status = StatusOK
		check.Message = c.platform + "/" + runtime.GOARCH
		return check
	}
	check.Status = StatusError
	check.Message = fmt.Sprintf("%s is not supported (supported: %v)", c.platform, c.opts.Platforms)
	return check
}

func (c *Checker) checkPrivilege() Check {
	check := Check{ID: IDPrivilege, Name: "Privileges"}
	euid := c.euid()
	switch {
	case euid == 0:
		check.Status = StatusOK
		check.Message = "running as root"
	case c.opts.RequireRoot:
		check.Status = StatusError
		check.Message = fmt.Sprintf("running as uid %d, root required", euid)
		check.Fix = "re-run with sudo"
	default:
		check.Status = StatusOK
		check.Message = fmt.Sprintf("running as uid %d", euid)
	}
	return check
}

func (c *Checker) checkDisk() Check {
	check := Check{ID: IDDisk, Name: "Disk space"}
	if c.opts.MinDiskGB <= 0 {
		check.Status = StatusSkipped
		check.Message = "no minimum configured"
		return check
	}

	path := existingAncestor(c.opts.DiskPath)
	free, err := c.diskFree(path)
	if err != nil {
		check.Status = StatusError
		check.Message = fmt.Sprintf("cannot measure free space on %s: %v", path, err)
		return check
	}

	freeGB := float64(free) / (1 << 30)
	if freeGB < float64(c.opts.MinDiskGB) {
		check.Status = StatusError
		check.Message = fmt.Sprintf("%.1f GB free on %s, %d GB required", freeGB, path, c.opts.MinDiskGB)
		check.Fix = "free disk space or change paths.install_dir"
		return check
	}
	check.Status = StatusOK
	check.Message = fmt.Sprintf("%.1f GB free on %s", freeGB, path)
	return check
}

func (c *Checker) checkTool(tool string) Check {
	check := Check{ID: idToolPrefix + tool, Name: tool}
	path, err := c.runner.LookPath(tool)
	if err != nil {
		check.Status = StatusMissing
		check.Message = "not installed"
		check.Fix = "apt-get install " + tool
		return check
	}
	check.Status = StatusOK
	check.Message = path
	return check
}

func (c *Checker) checkConnectivity(ctx context.Context) Check {
	check := Check{ID: IDConnectivity, Name: "Network"}
	if c.opts.ConnectivityHost == "" {
		check.Status = StatusSkipped
		check.Message = "no connectivity host configured"
		return check
	}

	address := c.opts.ConnectivityHost
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, "443")
	}

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, err := c.dial(ctx, "tcp", address)
	if err != nil {
		check.Status = StatusError
		check.Message = fmt.Sprintf("cannot reach %s: %v", address, err)
		check.Fix = "check network and proxy settings"
		return check
	}
	_ = conn.Close()

	check.Status = StatusOK
	check.Message = "reached " + address
	return check
}

// existingAncestor returns path or its closest existing parent.
func existingAncestor(path string) string {
	if path == "" {
		return string(filepath.Separator)
	}
	path = filepath.Clean(path)
	for {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
