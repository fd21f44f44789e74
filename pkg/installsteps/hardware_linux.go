//go:build linux

package installsteps

import (
	"runtime"

	"golang.org/x/sys/unix"
)

func probeHardware() (Hardware, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return Hardware{}, err
	}
	return Hardware{
		CPUs:        runtime.NumCPU(),
		MemoryBytes: uint64(info.Totalram) * uint64(info.Unit),
	}, nil
}
