package chat

import (
	"fmt"
	"testing"
	"time"
)

type fakeTransport struct{}

func (f *fakeTransport) WriteMessage(int, []byte) error            { return nil }
func (f *fakeTransport) WriteControl(int, []byte, time.Time) error { return nil }
func (f *fakeTransport) SetWriteDeadline(time.Time) error          { return nil }
func (f *fakeTransport) Close() error                              { return nil }

func newTestConn(id string) *WsConn {
	return NewWsConn(id, &fakeTransport{}, 16)
}

func TestRegistryAddDuplicate(t *testing.T) {
	r := NewRegistry()
	c := newTestConn("c1")
	if err := r.Add(c); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Add(newTestConn("c1")); err == nil {
		t.Fatalf("expected duplicate conn_id to be rejected")
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	r := NewRegistry()
	c := newTestConn("c1")
	_ = r.Add(c)
	_ = r.BindUser("c1", "u1", "alice")
	r.Remove("c1")
	r.Remove("c1") // second remove must be a silent no-op
	r.Remove("never-registered")
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}
	if got := r.ListByUser("u1"); len(got) != 0 {
		t.Fatalf("ListByUser after remove = %d conns, want 0", len(got))
	}
}

func TestRegistryBindIdempotentAndOverwrite(t *testing.T) {
	r := NewRegistry()
	_ = r.Add(newTestConn("c1"))

	if err := r.BindUser("c1", "u1", "alice"); err != nil {
		t.Fatalf("BindUser: %v", err)
	}
	// 同一身份重复绑定：无变化
	if err := r.BindUser("c1", "u1", "alice"); err != nil {
		t.Fatalf("rebind same identity: %v", err)
	}
	if got := len(r.ListByUser("u1")); got != 1 {
		t.Fatalf("ListByUser(u1) = %d, want 1", got)
	}

	// 绑定其他身份：last write wins，旧索引摘除
	if err := r.BindUser("c1", "u2", "bob"); err != nil {
		t.Fatalf("rebind other identity: %v", err)
	}
	if got := len(r.ListByUser("u1")); got != 0 {
		t.Fatalf("ListByUser(u1) after overwrite = %d, want 0", got)
	}
	if got := len(r.ListByUser("u2")); got != 1 {
		t.Fatalf("ListByUser(u2) = %d, want 1", got)
	}
}

func TestRegistryRosterMatchesBoundConnections(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		_ = r.Add(newTestConn(fmt.Sprintf("c%d", i)))
	}
	_ = r.BindUser("c0", "u-alice", "alice")
	_ = r.BindUser("c1", "u-bob", "bob")
	_ = r.BindUser("c2", "u-alice", "alice") // second tab
	// c3, c4 stay anonymous

	roster := r.Roster()
	if len(roster) != 3 {
		t.Fatalf("roster size = %d, want 3 (one per bound connection)", len(roster))
	}
	// sorted by username then userID
	want := []RosterEntry{
		{UserID: "u-alice", Username: "alice"},
		{UserID: "u-alice", Username: "alice"},
		{UserID: "u-bob", Username: "bob"},
	}
	for i, e := range want {
		if roster[i] != e {
			t.Fatalf("roster[%d] = %+v, want %+v", i, roster[i], e)
		}
	}

	r.Remove("c2")
	r.Remove("c1")
	roster = r.Roster()
	if len(roster) != 1 || roster[0].UserID != "u-alice" {
		t.Fatalf("roster after removals = %+v, want single alice entry", roster)
	}
}

func TestRegistrySnapshotSemantics(t *testing.T) {
	r := NewRegistry()
	_ = r.Add(newTestConn("c1"))
	_ = r.Add(newTestConn("c2"))

	snap := r.ListAll()
	r.Remove("c1")
	r.Remove("c2")

	// 快照不受后续变更影响
	if len(snap) != 2 {
		t.Fatalf("snapshot mutated: len = %d, want 2", len(snap))
	}
	if r.Len() != 0 {
		t.Fatalf("registry should be empty, Len = %d", r.Len())
	}
}
