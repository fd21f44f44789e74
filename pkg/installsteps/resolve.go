package installsteps

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/jaspreet-dot-casa/uinstall/pkg/config"
	"github.com/jaspreet-dot-casa/uinstall/pkg/snapshot"
)

func (s *Steps) resolveComponents(_ context.Context, snap *snapshot.Snapshot) error {
	catalog, err := s.loadCatalog()
	if err != nil {
		return err
	}

	resolved, err := catalog.Resolve(snap.Mode, snap.Components)
	if err != nil {
		return err
	}

	names := make([]string, len(resolved))
	for i, comp := range resolved {
		names[i] = comp.Name
	}
	snap.Components = names
	s.deps.Logger.Info("components resolved", "mode", snap.Mode, "components", names)
	return nil
}

// Base secrets every installation gets.
const (
	SecretAdminPassword = "admin_password"
	SecretSessionKey    = "session_key"
)

const secretAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// SecretLength returns the generated secret length for a security tier.
func SecretLength(tier string) int {
	switch tier {
	case config.TierBasic:
		return 16
	case config.TierHardened:
		return 40
	default:
		return 24
	}
}

// secretNames lists the secrets the selected components need.
func (s *Steps) secretNames(snap *snapshot.Snapshot) ([]string, error) {
	names := []string{SecretAdminPassword, SecretSessionKey}

	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}
	for _, name := range snap.Components {
		if comp, ok := catalog.Get(name); ok && comp.Service != "" {
			names = append(names, comp.Service+"_token")
		}
	}
	return names, nil
}

func (s *Steps) generateSecrets(_ context.Context, snap *snapshot.Snapshot) error {
	names, err := s.secretNames(snap)
	if err != nil {
		return err
	}

	length := SecretLength(snap.SecurityTier)
	generated := 0
	for _, name := range names {
		if _, ok := snap.Secret(name); ok {
			continue
		}
		secret, err := randomString(s.deps.Rand, length)
		if err != nil {
			return fmt.Errorf("generate %s: %w", name, err)
		}
		snap.SetSecret(name, secret)
		generated++
	}

	s.deps.Logger.Info("secrets ready", "generated", generated, "total", len(names), "length", length)
	return nil
}

func randomString(r io.Reader, n int) (string, error) {
	size := big.NewInt(int64(len(secretAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(r, size)
		if err != nil {
			return "", err
		}
		out[i] = secretAlphabet[idx.Int64()]
	}
	return string(out), nil
}
