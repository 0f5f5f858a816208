// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

package bundle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/draftforge/draftforge/internal/testinfra"
)

// writeBundleDir lays out a bundle directory with a real reference store,
// valid metadata and placeholder model files. Model loading is the first
// step that needs genuine training artifacts, so full-load tests stop there.
func writeBundleDir(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, artifactTrainingMetadata), fullTrainingMetadata)
	writeFile(t, filepath.Join(dir, artifactBundleMetadata), `{}`)
	testinfra.CreateReferenceStore(t, filepath.Join(dir, artifactReferenceStore))
	for _, phase := range []string{"early", "mid", "late"} {
		writeFile(t, filepath.Join(dir, phase+artifactModelSuffix), "not a real model")
	}
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
}

func TestLoadDir_MissingReferenceStore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, artifactTrainingMetadata), fullTrainingMetadata)
	writeFile(t, filepath.Join(dir, artifactBundleMetadata), `{}`)

	_, err := LoadDir(dir)
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if lerr.Artifact != artifactReferenceStore {
		t.Errorf("artifact = %q, want %q", lerr.Artifact, artifactReferenceStore)
	}
}

func TestLoadDir_BrokenModelArtifactIsNamed(t *testing.T) {
	dir := t.TempDir()
	writeBundleDir(t, dir)

	_, err := LoadDir(dir)
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if lerr.Artifact != "early"+artifactModelSuffix {
		t.Errorf("artifact = %q, want early%s", lerr.Artifact, artifactModelSuffix)
	}
}

func TestLoadDir_ResolvesModelsSubdir(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, modelsSubdir)
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	writeBundleDir(t, nested)

	// Artifacts live only under models/, so reaching the model-load step
	// proves the subdirectory was resolved.
	_, err := LoadDir(root)
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if lerr.Artifact != "early"+artifactModelSuffix {
		t.Errorf("artifact = %q, want the nested model artifact", lerr.Artifact)
	}
	if filepath.Dir(lerr.Path) != nested {
		t.Errorf("artifact path %q not resolved under models/", lerr.Path)
	}
}
