package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pitlane/leaguechat/internal/chat"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func cachedMsg(id, text string, at time.Time) chat.DisplayMessage {
	return chat.DisplayMessage{
		ID:        id,
		Text:      text,
		User:      chat.User{ID: "u1", Name: "Alice"},
		CreatedAt: at,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
}

func TestUpsertMessageIsIdempotent(t *testing.T) {
	db := testDB(t)
	at := time.Now()

	m := cachedMsg("m1", "hello", at)
	if err := db.UpsertMessage("league-42", m); err != nil {
		t.Fatal(err)
	}
	m.Status = chat.StatusSent
	if err := db.UpsertMessage("league-42", m); err != nil {
		t.Fatal(err)
	}

	got, err := db.RecentMessages("league-42", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 after re-delivery", len(got))
	}
	if got[0].Status != chat.StatusSent {
		t.Errorf("status = %q, want sent (updated in place)", got[0].Status)
	}
}

func TestRecentMessagesAscendingWindow(t *testing.T) {
	db := testDB(t)
	base := time.Now()
	for i := 0; i < 5; i++ {
		m := cachedMsg("m"+string(rune('1'+i)), "msg", base.Add(time.Duration(i)*time.Minute))
		if err := db.UpsertMessage("league-42", m); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.RecentMessages("league-42", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// The newest 3, oldest first.
	if got[0].ID != "m3" || got[2].ID != "m5" {
		t.Errorf("window = [%s..%s], want [m3..m5]", got[0].ID, got[2].ID)
	}
}

func TestRecentMessagesScopedToChannel(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertMessage("league-1", cachedMsg("m1", "a", time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMessage("league-2", cachedMsg("m2", "b", time.Now())); err != nil {
		t.Fatal(err)
	}

	got, err := db.RecentMessages("league-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("messages = %+v, want only league-1 rows", got)
	}
}

func TestPromoteMessage(t *testing.T) {
	db := testDB(t)
	m := cachedMsg("tmp1", "hi", time.Now())
	m.Status = chat.StatusSending
	if err := db.UpsertMessage("league-42", m); err != nil {
		t.Fatal(err)
	}

	if err := db.PromoteMessage("league-42", "tmp1", "srv1"); err != nil {
		t.Fatal(err)
	}

	got, err := db.RecentMessages("league-42", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "srv1" || got[0].Status != chat.StatusSent {
		t.Errorf("messages = %+v, want promoted srv1/sent", got)
	}
}

func TestPromoteMessageDropsTempWhenEchoRaced(t *testing.T) {
	db := testDB(t)
	at := time.Now()
	tmp := cachedMsg("tmp1", "hi", at)
	tmp.Status = chat.StatusSending
	if err := db.UpsertMessage("league-42", tmp); err != nil {
		t.Fatal(err)
	}
	srv := cachedMsg("srv1", "hi", at)
	srv.Status = chat.StatusSent
	if err := db.UpsertMessage("league-42", srv); err != nil {
		t.Fatal(err)
	}

	if err := db.PromoteMessage("league-42", "tmp1", "srv1"); err != nil {
		t.Fatal(err)
	}

	got, err := db.RecentMessages("league-42", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "srv1" {
		t.Errorf("messages = %+v, want single srv1 row", got)
	}
}

func TestTouchChannelKeepsNewestPreview(t *testing.T) {
	db := testDB(t)
	newer := time.Now()
	older := newer.Add(-time.Hour)

	if err := db.TouchChannel("league-42", newer, "newest"); err != nil {
		t.Fatal(err)
	}
	if err := db.TouchChannel("league-42", older, "stale"); err != nil {
		t.Fatal(err)
	}

	var preview string
	var at int64
	err := db.QueryRow(`SELECT last_message_preview, last_message_at FROM channels WHERE key = ?`, "league-42").
		Scan(&preview, &at)
	if err != nil {
		t.Fatal(err)
	}
	if preview != "newest" {
		t.Errorf("preview = %q, want newest (older touch must not regress)", preview)
	}
	if at != newer.UnixMilli() {
		t.Errorf("last_message_at = %d, want %d", at, newer.UnixMilli())
	}
}
