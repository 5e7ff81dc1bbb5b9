package store

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
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

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate; a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestConversationUpsertAndList(t *testing.T) {
	db := testDB(t)

	conv := &Conversation{ID: "c1", CounterpartID: "u2", CounterpartName: "Alice", LastMessage: "hello", LastMessageAt: 1000}
	if err := db.UpsertConversation(conv); err != nil {
		t.Fatal(err)
	}

	conv.CounterpartName = "Alice Updated"
	conv.LastMessageAt = 2000
	if err := db.UpsertConversation(conv); err != nil {
		t.Fatal(err)
	}

	convs, err := db.ListConversations()
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 {
		t.Fatalf("got %d conversations, want 1", len(convs))
	}
	if convs[0].CounterpartName != "Alice Updated" {
		t.Errorf("name = %q, want Alice Updated", convs[0].CounterpartName)
	}
}

func TestUpsertPreservesPinned(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertConversation(&Conversation{ID: "c1", CounterpartName: "A"}); err != nil {
		t.Fatal(err)
	}
	if err := db.SetPinned("c1", true); err != nil {
		t.Fatal(err)
	}

	// A refetch-driven upsert must not clear the local pin.
	if err := db.UpsertConversation(&Conversation{ID: "c1", CounterpartName: "A", LastMessage: "new"}); err != nil {
		t.Fatal(err)
	}

	c, err := db.GetConversation("c1")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || !c.Pinned {
		t.Error("pinned flag lost after upsert")
	}
}

func TestGetConversationMissing(t *testing.T) {
	db := testDB(t)
	c, err := db.GetConversation("missing")
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Errorf("GetConversation(missing) = %v, want nil", c)
	}
}

func TestMessageUpsertIdempotent(t *testing.T) {
	db := testDB(t)

	msg := &Message{ConversationID: "c1", MsgID: "m1", SenderID: "u2", Body: "hello", SentAt: 1000}
	if err := db.UpsertMessage(msg); err != nil {
		t.Fatal(err)
	}
	msg.Body = "hello updated"
	if err := db.UpsertMessage(msg); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (idempotent upsert failed)", len(msgs))
	}
	if msgs[0].Body != "hello updated" {
		t.Errorf("body = %q, want hello updated", msgs[0].Body)
	}
}

func TestListMessagesOldestFirst(t *testing.T) {
	db := testDB(t)

	for _, m := range []Message{
		{ConversationID: "c1", MsgID: "m2", Body: "second", SentAt: 2000},
		{ConversationID: "c1", MsgID: "m1", Body: "first", SentAt: 1000},
		{ConversationID: "c1", MsgID: "m3", Body: "third", SentAt: 3000},
	} {
		if err := db.UpsertMessage(&m); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := db.ListMessages("c1")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"first", "second", "third"}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, w := range want {
		if msgs[i].Body != w {
			t.Errorf("msgs[%d] = %q, want %q", i, msgs[i].Body, w)
		}
	}
}

func TestReplaceMessages(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertMessage(&Message{ConversationID: "c1", MsgID: "old", Body: "stale", SentAt: 500}); err != nil {
		t.Fatal(err)
	}
	fresh := []Message{
		{MsgID: "m1", SenderID: "u2", Body: "one", SentAt: 1000},
		{MsgID: "m2", SenderID: "u1", Body: "two", SentAt: 2000},
	}
	if err := db.ReplaceMessages("c1", fresh); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2 (stale row replaced)", len(msgs))
	}
	if msgs[0].MsgID != "m1" || msgs[1].MsgID != "m2" {
		t.Errorf("messages = %v", msgs)
	}
}

func TestClearUnread(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertConversation(&Conversation{ID: "c1", UnreadCount: 5}); err != nil {
		t.Fatal(err)
	}
	if err := db.ClearUnread("c1"); err != nil {
		t.Fatal(err)
	}
	c, err := db.GetConversation("c1")
	if err != nil {
		t.Fatal(err)
	}
	if c.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0", c.UnreadCount)
	}
}

func TestContacts(t *testing.T) {
	db := testDB(t)

	contacts := []Contact{
		{UserID: "u1", Email: "a@x.com", FullName: "Alice", ContactType: "TENANT"},
		{UserID: "u2", Email: "b@x.com", FullName: "Bob", ContactType: "SERVICE_PROVIDER"},
	}
	if err := db.BulkUpsertContacts(contacts); err != nil {
		t.Fatal(err)
	}

	c, err := db.GetContact("u1")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.ContactType != "TENANT" {
		t.Errorf("got %v, want TENANT contact", c)
	}

	all, err := db.ListContacts()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("got %d contacts, want 2", len(all))
	}
}
