package ml

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestRegistryReloadSwapsPredictor(t *testing.T) {
	dir := t.TempDir()
	paths := writeArtifacts(t, dir, NewKNN(3), ModelTypeKNN)

	registry, err := NewRegistry(paths, 8, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	first := registry.Current()
	if first == nil || registry.Reloads() != 1 {
		t.Fatalf("expected an initial predictor")
	}

	if err := registry.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if registry.Current() == first {
		t.Fatal("expected a new predictor after reload")
	}
}

func TestRegistryFailedReloadKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	paths := writeArtifacts(t, dir, NewKNN(3), ModelTypeKNN)
	registry, err := NewRegistry(paths, 8, nil)
	if err != nil {
		t.Fatal(err)
	}
	previous := registry.Current()

	if err := os.WriteFile(paths.Scaler, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := registry.Reload(); err == nil {
		t.Fatal("expected reload to fail on a corrupt scaler")
	}
	if registry.Current() != previous {
		t.Fatal("failed reload must keep the previous predictor")
	}
}

func TestRegistryWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	paths := writeArtifacts(t, dir, NewKNN(3), ModelTypeKNN)
	registry, err := NewRegistry(paths, 8, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- registry.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	writeArtifacts(t, dir, NewKNN(5), ModelTypeKNN)

	deadline := time.Now().Add(5 * time.Second)
	for registry.Reloads() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("expected the watcher to reload artifacts")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestNewRegistryFailsOnMissingArtifacts(t *testing.T) {
	_, err := NewRegistry(ArtifactPaths{Schema: "missing.json", Scaler: "missing.json", Model: "missing.json", ModelType: ModelTypeKNN}, 0, nil)
	if err == nil {
		t.Fatal("expected an artifact load failure")
	}
}
