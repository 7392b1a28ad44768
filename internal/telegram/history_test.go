package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/telegate/telegate/internal/domain"
)

// fakeHistory serves a fixed descending message store the way the upstream
// does: at most Limit records with id < OffsetID per call.
type fakeHistory struct {
	messages []*tg.Message // descending by id
	calls    int
}

func (f *fakeHistory) MessagesGetHistory(ctx context.Context, req *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	f.calls++
	var out []tg.MessageClass
	for _, m := range f.messages {
		if req.OffsetID != 0 && m.ID >= req.OffsetID {
			continue
		}
		out = append(out, m)
		if len(out) == req.Limit {
			break
		}
	}
	return &tg.MessagesChannelMessages{Messages: out}, nil
}

// historyMsg builds a message whose date is base plus id hours, so higher ids
// are newer.
func historyMsg(id int, base time.Time) *tg.Message {
	return &tg.Message{
		ID:      id,
		Message: "m",
		Date:    int(base.Add(time.Duration(id) * time.Hour).Unix()),
	}
}

func historyStore(n int, base time.Time) []*tg.Message {
	msgs := make([]*tg.Message, 0, n)
	for id := n; id >= 1; id-- {
		msgs = append(msgs, historyMsg(id, base))
	}
	return msgs
}

func newTestPager(fake *fakeHistory, maxScanBatches int) *Pager {
	g, _ := newTestGovernor(NewSessionManager(zap.NewNop()))
	return NewPager(fake, g, 100, maxScanBatches, zap.NewNop())
}

var testPeer = &tg.InputPeerChannel{ChannelID: 1, AccessHash: 2}

func TestPagerFetchNewest(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeHistory{messages: historyStore(100, base)}
	p := newTestPager(fake, 10)

	page, err := p.FetchPage(context.Background(), testPeer, domain.PageRequest{Limit: 10})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(page.Messages) != 10 {
		t.Fatalf("len = %d, want 10", len(page.Messages))
	}
	if page.Messages[0].ID != 100 || page.Messages[9].ID != 91 {
		t.Errorf("ids = %d..%d, want 100..91", page.Messages[0].ID, page.Messages[9].ID)
	}
	if page.NextOffsetID != 91 {
		t.Errorf("NextOffsetID = %d, want 91", page.NextOffsetID)
	}
	if !page.HasMore {
		t.Error("HasMore = false with older history remaining")
	}
	if fake.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", fake.calls)
	}
}

func TestPagerPagesDoNotOverlap(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeHistory{messages: historyStore(50, base)}
	p := newTestPager(fake, 10)

	first, err := p.FetchPage(context.Background(), testPeer, domain.PageRequest{Limit: 10})
	if err != nil {
		t.Fatalf("first FetchPage: %v", err)
	}
	second, err := p.FetchPage(context.Background(), testPeer, domain.PageRequest{
		Limit:    10,
		OffsetID: first.NextOffsetID,
	})
	if err != nil {
		t.Fatalf("second FetchPage: %v", err)
	}

	seen := map[int]bool{}
	for _, m := range first.Messages {
		seen[m.ID] = true
	}
	for _, m := range second.Messages {
		if seen[m.ID] {
			t.Errorf("message %d returned on both pages", m.ID)
		}
	}
	if second.Messages[0].ID != 40 {
		t.Errorf("second page starts at %d, want 40", second.Messages[0].ID)
	}
}

func TestPagerEndOfHistory(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeHistory{messages: historyStore(5, base)}
	p := newTestPager(fake, 10)

	page, err := p.FetchPage(context.Background(), testPeer, domain.PageRequest{Limit: 10})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(page.Messages) != 5 {
		t.Errorf("len = %d, want 5", len(page.Messages))
	}
	if page.HasMore {
		t.Error("HasMore = true at end of history")
	}
}

func TestPagerDateFloorStopsPaging(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeHistory{messages: historyStore(100, base)}
	p := newTestPager(fake, 10)

	// Only ids >= 96 are on or after the floor.
	page, err := p.FetchPage(context.Background(), testPeer, domain.PageRequest{
		Limit:    10,
		DateFrom: base.Add(96 * time.Hour),
	})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(page.Messages) != 5 {
		t.Fatalf("len = %d, want 5", len(page.Messages))
	}
	if page.Messages[4].ID != 96 {
		t.Errorf("oldest id = %d, want 96", page.Messages[4].ID)
	}
	// Everything below the floor is out of range, so there is no more.
	if page.HasMore {
		t.Error("HasMore = true after reaching the date floor")
	}
	if fake.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", fake.calls)
	}
}

func TestPagerDateCeilingScansForward(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeHistory{messages: historyStore(100, base)}
	p := newTestPager(fake, 10)

	// Ids above 85 are too new; the engine must page past them internally.
	page, err := p.FetchPage(context.Background(), testPeer, domain.PageRequest{
		Limit:  10,
		DateTo: base.Add(85 * time.Hour),
	})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(page.Messages) != 10 {
		t.Fatalf("len = %d, want 10", len(page.Messages))
	}
	if page.Messages[0].ID != 85 || page.Messages[9].ID != 76 {
		t.Errorf("ids = %d..%d, want 85..76", page.Messages[0].ID, page.Messages[9].ID)
	}
	if fake.calls < 2 {
		t.Errorf("upstream calls = %d, want internal paging", fake.calls)
	}
}

func TestPagerScanCap(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeHistory{messages: historyStore(100, base)}
	p := newTestPager(fake, 3)

	// Nothing matches: every message is after the ceiling.
	page, err := p.FetchPage(context.Background(), testPeer, domain.PageRequest{
		Limit:  10,
		DateTo: base.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(page.Messages) != 0 {
		t.Errorf("len = %d, want 0", len(page.Messages))
	}
	if fake.calls != 3 {
		t.Errorf("upstream calls = %d, want the scan cap of 3", fake.calls)
	}
}

func TestPagerScanCapAdvancesCursor(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeHistory{messages: historyStore(100, base)}
	p := newTestPager(fake, 3)

	req := domain.PageRequest{Limit: 10, DateTo: base.Add(-time.Hour)}
	first, err := p.FetchPage(context.Background(), testPeer, req)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	// Three batches of 10 consumed ids 100..71; the cursor must point past
	// them even though nothing was in range.
	if first.NextOffsetID != 71 {
		t.Fatalf("NextOffsetID = %d, want 71", first.NextOffsetID)
	}
	if !first.HasMore {
		t.Fatal("HasMore = false with unscanned history remaining")
	}

	// Resuming from the returned cursor scans new batches, not the same ones.
	req.OffsetID = first.NextOffsetID
	second, err := p.FetchPage(context.Background(), testPeer, req)
	if err != nil {
		t.Fatalf("resumed FetchPage: %v", err)
	}
	if second.NextOffsetID >= first.NextOffsetID {
		t.Errorf("resumed NextOffsetID = %d, want progress past %d",
			second.NextOffsetID, first.NextOffsetID)
	}
	if second.NextOffsetID != 41 {
		t.Errorf("resumed NextOffsetID = %d, want 41", second.NextOffsetID)
	}
}

func TestPagerInvalidRequests(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		req  domain.PageRequest
	}{
		{"zero limit", domain.PageRequest{Limit: 0}},
		{"limit over max", domain.PageRequest{Limit: 101}},
		{"negative offset", domain.PageRequest{Limit: 10, OffsetID: -1}},
		{"inverted date range", domain.PageRequest{
			Limit:    10,
			DateFrom: base.Add(time.Hour),
			DateTo:   base,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeHistory{messages: historyStore(10, base)}
			p := newTestPager(fake, 10)
			_, err := p.FetchPage(context.Background(), testPeer, tc.req)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Fatalf("FetchPage = %v, want ErrInvalidRequest", err)
			}
			if fake.calls != 0 {
				t.Errorf("upstream calls = %d, want 0", fake.calls)
			}
		})
	}
}
