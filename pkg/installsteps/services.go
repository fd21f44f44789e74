package installsteps

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jaspreet-dot-casa/uinstall/pkg/snapshot"
	"github.com/jaspreet-dot-casa/uinstall/pkg/system"
)

func (s *Steps) startServices(ctx context.Context, snap *snapshot.Snapshot) error {
	line := s.deps.Config.Services.StartCommand
	if line == "" {
		s.deps.Logger.Info("no start command configured")
		return nil
	}

	cmd, err := system.Parse(line)
	if err != nil {
		return err
	}
	cmd.Dir = s.deps.Config.Paths.InstallDir
	cmd.Env = envList(s.environment(snap))

	if _, err := s.deps.Runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	s.deps.Logger.Info("services started", "command", line)
	return nil
}

func (s *Steps) verifyServices(ctx context.Context, snap *snapshot.Snapshot) error {
	timeout := s.deps.Config.Services.HealthTimeout
	if timeout == 0 || len(snap.Ports) == 0 {
		s.deps.Logger.Info("service verification skipped", "ports", len(snap.Ports))
		return nil
	}

	names := make([]string, 0, len(snap.Ports))
	for name := range snap.Ports {
		names = append(names, name)
	}
	slices.Sort(names)

	deadline := time.Now().Add(timeout)
	for _, name := range names {
		address := net.JoinHostPort(s.deps.Config.Ports.Host, strconv.Itoa(snap.Ports[name]))
		if err := s.waitFor(ctx, name, address, time.Until(deadline)); err != nil {
			return err
		}
		s.deps.Logger.Info("service healthy", "service", name, "address", address)
	}
	return nil
}

// waitFor retries connecting to address with exponential backoff until it
// succeeds, remaining elapses or ctx is done.
func (s *Steps) waitFor(ctx context.Context, name, address string, remaining time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = max(remaining, time.Millisecond)

	attempts := 0
	op := func() error {
		attempts++
		dialCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		conn, err := s.deps.Dial(dialCtx, "tcp", address)
		if err != nil {
			return err
		}
		_ = conn.Close()
		return nil
	}
	notify := func(err error, wait time.Duration) {
		s.deps.Logger.Debug("service not ready", "service", name, "address", address, "error", err, "retry_in", wait)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("service %s did not accept connections on %s after %d attempts: %w", name, address, attempts, err)
	}
	return nil
}
