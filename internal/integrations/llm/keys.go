package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// KeySource supplies the provider API key.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a key supplied directly through configuration.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) {
	return strings.TrimSpace(string(k)), nil
}

// SecretGetter reads a secret by name. *paramstore.Client satisfies it.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// ParamStoreKey resolves the key from Parameter Store on first use and keeps
// it for the lifetime of the process. Failed lookups are not cached.
type ParamStoreKey struct {
	getter SecretGetter
	name   string

	mu     sync.RWMutex
	loaded bool
	key    string
}

func NewParamStoreKey(getter SecretGetter, name string) (*ParamStoreKey, error) {
	if getter == nil {
		return nil, errors.New("llm: secret getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("llm: key parameter name must not be empty")
	}
	return &ParamStoreKey{getter: getter, name: name}, nil
}

func (k *ParamStoreKey) APIKey(ctx context.Context) (string, error) {
	k.mu.RLock()
	if k.loaded {
		key := k.key
		k.mu.RUnlock()
		return key, nil
	}
	k.mu.RUnlock()

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.loaded {
		return k.key, nil
	}
	key, err := k.getter.GetSecret(ctx, k.name)
	if err != nil {
		return "", fmt.Errorf("llm: fetch key from paramstore: %w", err)
	}
	k.key = key
	k.loaded = true
	return key, nil
}
