package sync_test

import (
	"os"
	"path/filepath"
	"testing"

	"fusioncore/testutil"
)

// TestInternalEngineBoundary mirrors the teacher's
// internal/core/persistence_contract_test.go: walk every package directory
// in the module and assert that only pkg/sync (and internal/engine itself)
// ever imports fusioncore/internal/engine directly. Every other package —
// the reference composites, the diagnostics sinks, the demo CLI — must see
// nothing but pkg/sync's exported surface.
func TestInternalEngineBoundary(t *testing.T) {
	root, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		t.Fatalf("filepath.Abs: %v", err)
	}

	const reason = "only pkg/sync may import fusioncore/internal/engine directly"
	checked := 0

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if name != "." && (name == "_examples" || name[0] == '.') {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		switch filepath.ToSlash(rel) {
		case "pkg/sync", "internal/engine":
			return nil
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		hasGoFile := false
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".go" {
				hasGoFile = true
				break
			}
		}
		if !hasGoFile {
			return nil
		}

		checked++
		testutil.AssertNoDirectImports(t, path, testutil.EngineImportForbidden, reason)
		return nil
	})
	if err != nil {
		t.Fatalf("walking module tree: %v", err)
	}
	if checked == 0 {
		t.Fatal("walked zero package directories; the boundary check ran over nothing")
	}
}
