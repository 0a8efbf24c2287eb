package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const vaultPrefix = "vault:"

// SecretSource reads one key of a KV-v2 secret.  *vault.Client satisfies it.
type SecretSource interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// secretFields lists the strings that may hold a vault: reference.
func (c *Config) secretFields() map[string]*string {
	return map[string]*string{
		"database.global_password": &c.Database.GlobalPassword,
		"redis.password":           &c.Redis.Password,
		"security.csrf_key":        &c.Security.CSRFKey,
		"security.session_key":     &c.Security.SessionKey,
	}
}

// NeedsVault reports whether any secret field holds a vault: reference.
func (c *Config) NeedsVault() bool {
	for _, p := range c.secretFields() {
		if strings.HasPrefix(*p, vaultPrefix) {
			return true
		}
	}
	return false
}

// ResolveSecrets replaces every `vault:<mount/path>#<key>` value in place
// and republishes c for Get.  src may be nil when NeedsVault is false.
func ResolveSecrets(ctx context.Context, c *Config, src SecretSource) error {
	for name, p := range c.secretFields() {
		ref, ok := strings.CutPrefix(*p, vaultPrefix)
		if !ok {
			continue
		}
		if src == nil {
			return fmt.Errorf("%s: vault reference without a vault client", name)
		}
		path, key, ok := strings.Cut(ref, "#")
		if !ok || path == "" || key == "" {
			return fmt.Errorf("%s: malformed vault reference %q", name, *p)
		}
		val, err := src.GetKV(ctx, path, key, 0)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if val == "" {
			return errors.New(name + ": empty secret")
		}
		*p = val
	}
	current.Store(c)
	return nil
}
