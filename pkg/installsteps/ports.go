package installsteps

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/jaspreet-dot-casa/uinstall/pkg/snapshot"
)

func portFree(host string, port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}

// services returns the service names of the selected components in order.
func (s *Steps) services(snap *snapshot.Snapshot) ([]string, error) {
	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, name := range snap.Components {
		if comp, ok := catalog.Get(name); ok && comp.Service != "" {
			names = append(names, comp.Service)
		}
	}
	return names, nil
}

func (s *Steps) allocatePorts(_ context.Context, snap *snapshot.Snapshot) error {
	services, err := s.services(snap)
	if err != nil {
		return err
	}

	cfg := s.deps.Config.Ports
	taken := make(map[int]bool, len(snap.Ports))
	for _, port := range snap.Ports {
		taken[port] = true
	}

	next := cfg.RangeStart
	for _, service := range services {
		if port, ok := snap.Port(service); ok {
			s.deps.Logger.Debug("port already allocated", "service", service, "port", port)
			continue
		}

		allocated := 0
		for ; next <= cfg.RangeEnd; next++ {
			if taken[next] || !s.deps.PortFree(cfg.Host, next) {
				continue
			}
			allocated = next
			next++
			break
		}
		if allocated == 0 {
			return fmt.Errorf("no free port for %s in %d-%d", service, cfg.RangeStart, cfg.RangeEnd)
		}

		taken[allocated] = true
		snap.SetPort(service, allocated)
		s.deps.Logger.Info("port allocated", "service", service, "port", allocated)
	}
	return nil
}
