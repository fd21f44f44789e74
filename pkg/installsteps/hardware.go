package installsteps

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jaspreet-dot-casa/uinstall/pkg/snapshot"
)

// Hardware tiers.
const (
	TierSmall  = "small"
	TierMedium = "medium"
	TierLarge  = "large"
)

const gib = 1 << 30

// Hardware describes the machine being installed.
type Hardware struct {
	CPUs        int
	MemoryBytes uint64 // 0 when unknown
}

// Tier classifies hardware. Unknown memory is judged on CPUs alone.
func (h Hardware) Tier() string {
	memOK := func(min uint64) bool { return h.MemoryBytes == 0 || h.MemoryBytes >= min }
	switch {
	case h.CPUs >= 8 && memOK(16*gib):
		return TierLarge
	case h.CPUs >= 4 && memOK(8*gib):
		return TierMedium
	default:
		return TierSmall
	}
}

func (s *Steps) detectHardware(_ context.Context, snap *snapshot.Snapshot) error {
	hw, err := s.deps.Hardware()
	if err != nil {
		return fmt.Errorf("probe hardware: %w", err)
	}

	snap.Set("cpus", strconv.Itoa(hw.CPUs))
	if hw.MemoryBytes > 0 {
		snap.Set("memory_mb", strconv.FormatUint(hw.MemoryBytes>>20, 10))
	}

	if snap.HardwareTier != "" {
		s.deps.Logger.Info("keeping configured hardware tier", "tier", snap.HardwareTier, "detected", hw.Tier())
		return nil
	}
	snap.HardwareTier = hw.Tier()
	s.deps.Logger.Info("hardware detected", "cpus", hw.CPUs, "memory_bytes", hw.MemoryBytes, "tier", snap.HardwareTier)
	return nil
}
