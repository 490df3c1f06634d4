package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// ErrGoldenMismatch is returned by CompareGolden when the listing differs.
var ErrGoldenMismatch = errors.New("golden file mismatch")

// RunWithGolden executes a scenario and compares the NFO listing against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check expectations too.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result's NFO listing against a golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, result.NFO)
}

// GoldenPath returns where CompareGolden keeps the listing for a scenario.
func GoldenPath(dir, scenarioName string) string {
	return filepath.Join(dir, "golden", scenarioName+".golden")
}

// CompareGolden checks result.NFO against the golden file under dir. With
// update set, the golden file is (re)written instead. A missing golden file
// is not an error unless update is set and it cannot be written.
func CompareGolden(dir, scenarioName string, result *Result, update bool) error {
	path := GoldenPath(dir, scenarioName)
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, result.NFO, 0o644); err != nil {
			return fmt.Errorf("write golden file: %w", err)
		}
		return nil
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, result.NFO) {
		return fmt.Errorf("%s: %w", path, ErrGoldenMismatch)
	}
	return nil
}
