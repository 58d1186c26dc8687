package codemods

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/git-pkgs/blueprints/client"
)

const manifestJSON = `{
  "codemods": {
    "angle-brackets": {
      "versions": {"ember-source": "3.10.0"},
      "projectOptions": ["app", "addon"],
      "commands": ["echo angle-brackets >> ran.txt"]
    },
    "native-class": {
      "versions": {"ember-source": "3.27.0"},
      "projectOptions": ["app"],
      "commands": ["echo native-class >> ran.txt"]
    },
    "ts-only": {
      "projectOptions": ["typescript"],
      "commands": ["echo ts-only >> ran.txt"]
    }
  }
}`

func TestFetchHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(manifestJSON))
	}))
	defer server.Close()

	m, err := Fetch(context.Background(), client.NewClient(client.WithBaseDelay(time.Millisecond)), server.URL+"/manifest.json")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	want := []string{"angle-brackets", "native-class", "ts-only"}
	if !slices.Equal(m.Names(), want) {
		t.Errorf("Names() = %v, want %v", m.Names(), want)
	}
}

func TestFetchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte(manifestJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, loc := range []string{path, "file:" + path} {
		m, err := Fetch(context.Background(), nil, loc)
		if err != nil {
			t.Fatalf("Fetch(%q) failed: %v", loc, err)
		}
		if len(m.Codemods) != 3 {
			t.Errorf("expected 3 codemods, got %d", len(m.Codemods))
		}
	}
}

func TestApplicable(t *testing.T) {
	m, err := Fetch(context.Background(), nil, writeManifest(t))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		manifest string
		want     []string
	}{
		{"old app", `{"devDependencies":{"ember-source":"~3.4.0"}}`, nil},
		{"mid app", `{"devDependencies":{"ember-source":"~3.12.0"}}`, []string{"angle-brackets"}},
		{"new app", `{"devDependencies":{"ember-source":"^4.0.0"}}`, []string{"angle-brackets", "native-class"}},
		{"new addon", `{"keywords":["ember-addon"],"devDependencies":{"ember-source":"^4.0.0"}}`, []string{"angle-brackets"}},
		{"typescript", `{"devDependencies":{"typescript":"^5.0.0"}}`, []string{"ts-only"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ProjectFromManifest([]byte(tt.manifest))
			if err != nil {
				t.Fatal(err)
			}
			got := m.Applicable(p)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Applicable = %v, want %v", got, tt.want)
			}
		})
	}
}

func writeManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte(manifestJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunnerRun(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	m, err := Fetch(context.Background(), nil, writeManifest(t))
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	r := &Runner{Stdout: &bytes.Buffer{}}
	if err := r.Run(context.Background(), dir, m, []string{"angle-brackets", "native-class"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "ran.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "angle-brackets\nnative-class\n" {
		t.Errorf("ran.txt = %q", got)
	}

	if err := r.Run(context.Background(), dir, m, []string{"missing"}); err == nil {
		t.Error("expected error for unknown codemod")
	}
}
