package persistence

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"go.uber.org/zap"
)

var createStmt = regexp.MustCompile(`(?i)\bCREATE\s+(UNIQUE\s+)?(TABLE|INDEX|EXTENSION)\s+(\w+)`)

// RunMigrations replays every file on start, so each CREATE must tolerate an
// existing object.
func TestMigrationsAreReplayable(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migrations found")
	}
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			t.Fatalf("read %s: %v", file, err)
		}
		for _, m := range createStmt.FindAllStringSubmatch(string(content), -1) {
			if m[3] != "IF" {
				t.Errorf("%s: %q is not guarded by IF NOT EXISTS", filepath.Base(file), m[0])
			}
		}
	}
}

func TestRunMigrationsWithoutPoolIsNoop(t *testing.T) {
	if err := RunMigrations(context.Background(), nil, "does-not-exist", zap.NewNop()); err != nil {
		t.Fatalf("err = %v", err)
	}
}
