//go:build !linux

package installsteps

import "runtime"

func probeHardware() (Hardware, error) {
	return Hardware{CPUs: runtime.NumCPU()}, nil
}
