package file

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/docmap/pkg/storage"
	"github.com/matzehuels/docmap/pkg/storage/storagetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return newTestStore(t)
	})
}

func TestLayoutOnDisk(t *testing.T) {
	s := newTestStore(t)
	m := storagetest.Sample("abcdefabcdefabcd", "doc")
	if err := s.Save(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{mindMapFilename, auditLogFilename} {
		if _, err := os.Stat(filepath.Join(s.Dir(), m.ContentHash, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestListSkipsForeignEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, storagetest.Sample("abcdefabcdefabcd", "doc")); err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{".git", "not-a-hash", "0000000000000000"} {
		if err := os.MkdirAll(filepath.Join(s.Dir(), dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(s.Dir(), ".gitkeep"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	// A corrupt document is skipped, not fatal.
	corrupt := filepath.Join(s.Dir(), "1111111111111111")
	if err := os.MkdirAll(corrupt, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(corrupt, mindMapFilename), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	infos, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].ContentHash != "abcdefabcdefabcd" {
		t.Errorf("List = %+v", infos)
	}
}

func TestNewStoreRequiresDir(t *testing.T) {
	if _, err := NewStore("", nil); err == nil {
		t.Error("NewStore(\"\") should fail")
	}
}
