package testutil

import (
	"context"
	"errors"
	"io"

	"xdt-go/internal/artifacts"
)

// ErrInjected is returned by FaultyArtifactStore for failing operations.
var ErrInjected = errors.New("injected failure")

// FaultyArtifactStore wraps a MemoryStore and fails selected operations.
type FaultyArtifactStore struct {
	*artifacts.MemoryStore
	FailPut    bool
	FailDelete bool
	FailExists bool
}

func NewFaultyArtifactStore() *FaultyArtifactStore {
	return &FaultyArtifactStore{MemoryStore: artifacts.NewMemoryStore()}
}

func (f *FaultyArtifactStore) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	if f.FailPut {
		return ErrInjected
	}
	return f.MemoryStore.Put(ctx, name, r, size)
}

func (f *FaultyArtifactStore) Delete(ctx context.Context, name string) error {
	if f.FailDelete {
		return ErrInjected
	}
	return f.MemoryStore.Delete(ctx, name)
}

func (f *FaultyArtifactStore) Exists(ctx context.Context, name string) (bool, error) {
	if f.FailExists {
		return false, ErrInjected
	}
	return f.MemoryStore.Exists(ctx, name)
}
