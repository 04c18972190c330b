package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kmkrofficial/signature/internal/core"
)

func TestInMemoryAuditor_Capacity(t *testing.T) {
	a := NewInMemoryAuditorWithCapacity(3)
	for _, action := range []string{"a", "b", "c", "d"} {
		if err := a.Log(core.AuditEntry{Action: action}); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}

	got, err := a.GetRecent(10)
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("GetRecent() returned %d entries, want 3", len(got))
	}
	if got[0].Action != "b" || got[2].Action != "d" {
		t.Errorf("GetRecent() = %v, want oldest entry dropped", got)
	}
}

func TestFileAuditor_Find(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	a, err := NewFileAuditor(path)
	if err != nil {
		t.Fatalf("NewFileAuditor() error = %v", err)
	}
	defer func() { _ = a.Close() }()

	entries := []core.AuditEntry{
		{ID: "1", Time: time.Now(), Action: core.ActionLogin, Success: true},
		{ID: "2", Time: time.Now(), Action: core.ActionGateDenied, Principal: &core.Principal{Email: "b@x.com"}},
		{ID: "3", Time: time.Now(), Action: core.ActionGateDenied, Principal: &core.Principal{Email: "c@x.com"}},
	}
	for _, e := range entries {
		if err := a.Log(e); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}

	denied, err := a.Find(func(e core.AuditEntry) bool {
		return e.Action == core.ActionGateDenied
	}, 1)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(denied) != 1 || denied[0].ID != "3" {
		t.Errorf("Find() = %+v, want only the most recent denied entry", denied)
	}

	recent, err := a.GetRecent(10)
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(recent) != 3 {
		t.Errorf("GetRecent() returned %d entries, want 3", len(recent))
	}
}
