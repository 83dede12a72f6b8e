package redis

import (
	"testing"
	"time"
)

func TestKeys(t *testing.T) {
	s := newStore(nil, "", nil)
	if got := s.mindMapKey("0123456789abcdef"); got != "docmap:mindmap:0123456789abcdef" {
		t.Errorf("mindMapKey = %q", got)
	}
	if got := s.auditKey("0123456789abcdef"); got != "docmap:audit:0123456789abcdef" {
		t.Errorf("auditKey = %q", got)
	}
	if got := newStore(nil, "x", nil).indexKey(); got != "x:documents" {
		t.Errorf("indexKey = %q", got)
	}
}

func TestScoreOrdersByTime(t *testing.T) {
	now := time.Now()
	if score(now.Add(-time.Hour)) >= score(now) {
		t.Error("older document should score lower")
	}
}
