package reconcile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/outbox"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/store"
)

type fakePending struct {
	items map[string][]outbox.QueuedMessage
}

func (f *fakePending) PendingFor(conversationID string) []outbox.QueuedMessage {
	return f.items[conversationID]
}

type fakeConn struct{ connected bool }

func (f *fakeConn) Connected() bool { return f.connected }

type fakeIdentity struct{ userID string }

func (f *fakeIdentity) CurrentUserID(context.Context) (string, error) { return f.userID, nil }

func testReconciler(t *testing.T) (*Reconciler, *store.DB, *fakePending, *fakeConn) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pending := &fakePending{items: map[string][]outbox.QueuedMessage{}}
	conn := &fakeConn{connected: true}
	return New(db, pending, conn, &fakeIdentity{userID: "me-1"}), db, pending, conn
}

func seedMessage(t *testing.T, db *store.DB, convID, msgID, senderID, body string, sentAt int64) {
	t.Helper()
	m := store.Message{ConversationID: convID, MsgID: msgID, SenderID: senderID, SenderName: senderID, Body: body, SentAt: sentAt}
	if err := db.UpsertMessage(&m); err != nil {
		t.Fatalf("seed message: %v", err)
	}
}

func TestMessagesMapsOwnSenderToMe(t *testing.T) {
	r, db, _, _ := testReconciler(t)
	seedMessage(t, db, "c-1", "m-1", "me-1", "hi", 1_700_000_000_000)
	seedMessage(t, db, "c-1", "m-2", "u-2", "hello", 1_700_000_001_000)

	msgs, err := r.Messages(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[0].SenderID != "me" {
		t.Errorf("own message senderId = %q, want \"me\"", msgs[0].SenderID)
	}
	if msgs[1].SenderID != "u-2" {
		t.Errorf("remote message senderId = %q", msgs[1].SenderID)
	}
	if msgs[0].Time == "" {
		t.Error("confirmed message should carry a formatted time")
	}
}

func TestMessagesAppendsPendingTrailing(t *testing.T) {
	r, db, pending, _ := testReconciler(t)
	seedMessage(t, db, "c-1", "m-1", "u-2", "from server", 1_700_000_000_000)
	pending.items["c-1"] = []outbox.QueuedMessage{
		{ConversationID: "c-1", Content: "queued first", ID: "q-1"},
		{ConversationID: "c-1", Content: "queued second"},
	}

	msgs, err := r.Messages(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages", len(msgs))
	}
	p1, p2 := msgs[1], msgs[2]
	if !p1.IsPending || !p2.IsPending {
		t.Error("queued entries must render as pending")
	}
	if p1.SenderID != "me" || p1.Time != "" {
		t.Errorf("pending entry = %+v", p1)
	}
	if p1.ID != "q-1" {
		t.Errorf("queue id should be reused, got %q", p1.ID)
	}
	if p2.ID == "" || p2.ID == p1.ID {
		t.Errorf("id-less entry needs a deterministic fallback id, got %q", p2.ID)
	}
	again, err := r.Messages(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if again[2].ID != p2.ID {
		t.Errorf("fallback id not deterministic: %q vs %q", again[2].ID, p2.ID)
	}
}

func TestNoDoubleRenderAfterFlush(t *testing.T) {
	r, db, pending, _ := testReconciler(t)

	// While queued and absent from history: exactly one pending bubble.
	pending.items["c-1"] = []outbox.QueuedMessage{{ConversationID: "c-1", Content: "hello", ID: "q-1"}}
	msgs, err := r.Messages(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 1 || !msgs[0].IsPending {
		t.Fatalf("before flush = %+v", msgs)
	}

	// After the flush removed it and the refetched history contains it:
	// exactly one confirmed bubble.
	pending.items["c-1"] = nil
	seedMessage(t, db, "c-1", "m-1", "me-1", "hello", 1_700_000_000_000)
	msgs, err = r.Messages(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].IsPending {
		t.Fatalf("after flush = %+v", msgs)
	}
}

func seedChats(t *testing.T, db *store.DB) {
	t.Helper()
	if err := db.BulkUpsertContacts([]store.Contact{
		{UserID: "u-tenant", FullName: "Ana Torres", ContactType: "TENANT"},
		{UserID: "u-vendor", FullName: "Bob's Plumbing", ContactType: "SERVICE_PROVIDER"},
	}); err != nil {
		t.Fatalf("seed contacts: %v", err)
	}
	convs := []store.Conversation{
		{ID: "c-1", CounterpartID: "u-tenant", CounterpartName: "Ana Torres", LastMessage: "leaky faucet", LastMessageAt: 3000},
		{ID: "c-2", CounterpartID: "u-vendor", CounterpartName: "Bob's Plumbing", LastMessage: "invoice sent", LastMessageAt: 2000},
		{ID: "c-3", CounterpartID: "u-stranger", CounterpartName: "Walk In", LastMessage: "viewing request", LastMessageAt: 1000},
	}
	for i := range convs {
		if err := db.UpsertConversation(&convs[i]); err != nil {
			t.Fatalf("seed conversation: %v", err)
		}
	}
}

func TestChatsCategoryPartition(t *testing.T) {
	r, db, _, _ := testReconciler(t)
	seedChats(t, db)
	ctx := context.Background()

	tenants, err := r.Chats(ctx, CategoryTenants, "")
	if err != nil {
		t.Fatalf("Chats: %v", err)
	}
	if len(tenants) != 1 || tenants[0].ID != "c-1" {
		t.Fatalf("Tenants = %+v", tenants)
	}

	leads, err := r.Chats(ctx, CategoryLeads, "")
	if err != nil {
		t.Fatalf("Chats: %v", err)
	}
	if len(leads) != 1 || leads[0].ID != "c-3" {
		t.Fatalf("unknown counterpart should default to Leads, got %+v", leads)
	}
	for _, c := range leads {
		if c.ID == "c-1" {
			t.Error("tenant chat leaked into Leads")
		}
	}
}

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		contactType string
		want        string
	}{
		{"TENANT", CategoryTenants},
		{"SERVICE_PROVIDER", CategoryProviders},
		{"MAINTENANCE", CategoryMaintenance},
		{"OWNER", CategoryLeads},
		{"", CategoryLeads},
	}
	for _, tt := range tests {
		if got := CategoryFor(tt.contactType); got != tt.want {
			t.Errorf("CategoryFor(%q) = %q, want %q", tt.contactType, got, tt.want)
		}
	}
}

func TestChatsPinnedFirstStable(t *testing.T) {
	r, db, _, _ := testReconciler(t)
	if err := db.BulkUpsertContacts([]store.Contact{
		{UserID: "u-1", FullName: "One", ContactType: "TENANT"},
		{UserID: "u-2", FullName: "Two", ContactType: "TENANT"},
		{UserID: "u-3", FullName: "Three", ContactType: "TENANT"},
	}); err != nil {
		t.Fatalf("seed contacts: %v", err)
	}
	// LastMessageAt descending drives list order 1, 2, 3.
	convs := []store.Conversation{
		{ID: "1", CounterpartID: "u-1", CounterpartName: "One", LastMessageAt: 3000},
		{ID: "2", CounterpartID: "u-2", CounterpartName: "Two", LastMessageAt: 2000, Pinned: true},
		{ID: "3", CounterpartID: "u-3", CounterpartName: "Three", LastMessageAt: 1000},
	}
	for i := range convs {
		if err := db.UpsertConversation(&convs[i]); err != nil {
			t.Fatalf("seed conversation: %v", err)
		}
	}
	if err := db.SetPinned("2", true); err != nil {
		t.Fatalf("seed pinned: %v", err)
	}

	chats, err := r.Chats(context.Background(), CategoryTenants, "")
	if err != nil {
		t.Fatalf("Chats: %v", err)
	}
	var got []string
	for _, c := range chats {
		got = append(got, c.ID)
	}
	want := []string{"2", "1", "3"}
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestChatsFilterCaseInsensitive(t *testing.T) {
	r, db, _, _ := testReconciler(t)
	seedChats(t, db)
	ctx := context.Background()

	byName, err := r.Chats(ctx, CategoryTenants, "ana")
	if err != nil {
		t.Fatalf("Chats: %v", err)
	}
	if len(byName) != 1 || byName[0].ID != "c-1" {
		t.Fatalf("filter by name = %+v", byName)
	}

	byLast, err := r.Chats(ctx, CategoryProviders, "INVOICE")
	if err != nil {
		t.Fatalf("Chats: %v", err)
	}
	if len(byLast) != 1 || byLast[0].ID != "c-2" {
		t.Fatalf("filter by last message = %+v", byLast)
	}

	none, err := r.Chats(ctx, CategoryTenants, "zzz")
	if err != nil {
		t.Fatalf("Chats: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("non-matching filter = %+v", none)
	}
}

func TestChatsStatusFollowsConnectivity(t *testing.T) {
	r, db, _, conn := testReconciler(t)
	seedChats(t, db)
	ctx := context.Background()

	chats, _ := r.Chats(ctx, CategoryTenants, "")
	if chats[0].Status != StatusActive {
		t.Errorf("connected status = %q", chats[0].Status)
	}

	conn.connected = false
	chats, _ = r.Chats(ctx, CategoryTenants, "")
	if chats[0].Status != StatusOffline {
		t.Errorf("offline status = %q", chats[0].Status)
	}
}

func TestPendingChatOverrideDiscardedOnceConfirmed(t *testing.T) {
	r, db, _, _ := testReconciler(t)
	ctx := context.Background()

	r.SetPendingChat(Chat{ID: "c-new", Name: "Fresh Lead", Category: CategoryLeads})

	chats, err := r.Chats(ctx, CategoryLeads, "")
	if err != nil {
		t.Fatalf("Chats: %v", err)
	}
	if len(chats) != 1 || chats[0].ID != "c-new" {
		t.Fatalf("override not shown: %+v", chats)
	}

	// Server confirms the conversation; the override must vanish for good.
	conv := store.Conversation{ID: "c-new", CounterpartID: "u-x", CounterpartName: "Fresh Lead", LastMessageAt: 1000}
	if err := db.UpsertConversation(&conv); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	chats, err = r.Chats(ctx, CategoryLeads, "")
	if err != nil {
		t.Fatalf("Chats: %v", err)
	}
	if len(chats) != 1 || chats[0].ID != "c-new" {
		t.Fatalf("confirmed chat = %+v", chats)
	}

	// Removing the row again must not resurrect the override.
	if _, err := db.Exec(`DELETE FROM conversations WHERE id = ?`, "c-new"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	chats, err = r.Chats(ctx, CategoryLeads, "")
	if err != nil {
		t.Fatalf("Chats: %v", err)
	}
	if len(chats) != 0 {
		t.Fatalf("override resurrected: %+v", chats)
	}
}
