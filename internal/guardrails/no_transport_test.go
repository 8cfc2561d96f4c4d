package guardrails

import (
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
)

// forbiddenImports are transport- and broker-facing packages the match
// core must never reach for directly: it exposes a ScoreSink to
// adapters and lets internal/httpserver and internal/events own the
// network boundary.
var forbiddenImports = []string{
	"net/http",
	"github.com/gorilla/mux",
	"github.com/gorilla/handlers",
	"github.com/segmentio/kafka-go",
}

// TestMatchCoreHasNoTransportImports guards internal/matchcore against
// accidentally depending on HTTP or Kafka packages, keeping the
// domain state machine transport-agnostic.
func TestMatchCoreHasNoTransportImports(t *testing.T) {
	root := filepath.Join("..", "matchcore")
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}

		fset := token.NewFileSet()
		file, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			return err
		}
		for _, spec := range file.Imports {
			imported := strings.Trim(spec.Path.Value, "\"")
			for _, forbidden := range forbiddenImports {
				if imported == forbidden {
					t.Errorf("%s imports forbidden transport package %q", path, imported)
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk internal/matchcore: %v", err)
	}
}
