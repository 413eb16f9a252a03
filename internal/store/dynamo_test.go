package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/lunarlash/leadline/internal/leads"
	"github.com/lunarlash/leadline/pkg/logging"
)

type mockDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	putErr   error
	getErr   error
	queryErr error

	getDelay      time.Duration
	inFlight      atomic.Int32
	maxInFlight   atomic.Int32
	lastPutInput  *dynamodb.PutItemInput
	failKeySuffix string
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(item map[string]types.AttributeValue) string {
	pk := item["pk"].(*types.AttributeValueMemberS).Value
	sk := item["sk"].(*types.AttributeValueMemberS).Value
	return pk + "|" + sk
}

func (m *mockDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPutInput = in
	m.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	cur := m.inFlight.Add(1)
	for {
		max := m.maxInFlight.Load()
		if cur <= max || m.maxInFlight.CompareAndSwap(max, cur) {
			break
		}
	}
	if m.getDelay > 0 {
		time.Sleep(m.getDelay)
	}
	defer m.inFlight.Add(-1)

	sk := in.Key["sk"].(*types.AttributeValueMemberS).Value
	if m.failKeySuffix != "" && strings.HasSuffix(sk, m.failKeySuffix) {
		return nil, errors.New("simulated read failure")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemKey(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	pk := in.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value
	prefix := ""
	if av, ok := in.ExpressionAttributeValues[":skPrefix"]; ok {
		prefix = av.(*types.AttributeValueMemberS).Value
	}

	var sks []string
	for key := range m.items {
		itemPK, sk, _ := strings.Cut(key, "|")
		if itemPK == pk && strings.HasPrefix(sk, prefix) {
			sks = append(sks, sk)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(sks)))

	out := &dynamodb.QueryOutput{}
	for _, sk := range sks {
		out.Items = append(out.Items, map[string]types.AttributeValue{
			"sk": &types.AttributeValueMemberS{Value: sk},
		})
	}
	return out, nil
}

func testLead(t *testing.T, created time.Time, name string) (*leads.Record, string) {
	t.Helper()
	id := leads.NewID(created)
	rec := leads.New(id, created, leads.Contact{Name: name, Phone: "+14355551234"}, leads.Meta{}, "deposit")
	return rec, leads.Key(id)
}

func TestPutMirrorsQueryableMetadata(t *testing.T) {
	mock := newMockDynamo()
	kv := New(mock, "leadline", logging.Default())

	rec, key := testLead(t, time.Now(), "Jess")
	rec.Status = leads.StatusBooked
	rec.Archived = true

	if err := kv.Put(context.Background(), key, rec); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	var stored leadItem
	if err := attributevalue.UnmarshalMap(mock.lastPutInput.Item, &stored); err != nil {
		t.Fatalf("failed to unmarshal stored item: %v", err)
	}
	if stored.PK != "leads" {
		t.Errorf("pk = %s, want leads", stored.PK)
	}
	if stored.Status != "booked" {
		t.Errorf("mirrored status = %s, want booked", stored.Status)
	}
	if !stored.Archived {
		t.Error("expected mirrored archived flag")
	}
	if stored.Record == nil || stored.Record.Lead.Name != "Jess" {
		t.Error("expected record blob to round-trip")
	}
}

func TestGetRoundTrip(t *testing.T) {
	mock := newMockDynamo()
	kv := New(mock, "leadline", logging.Default())

	rec, key := testLead(t, time.Now(), "Jess")
	if err := kv.Put(context.Background(), key, rec); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, err := kv.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.ID != rec.ID || got.Lead.Phone != rec.Lead.Phone {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestGetNotFound(t *testing.T) {
	kv := New(newMockDynamo(), "leadline", logging.Default())
	_, err := kv.Get(context.Background(), leads.Key(leads.NewID(time.Now())))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMalformedKeyRejected(t *testing.T) {
	kv := New(newMockDynamo(), "leadline", logging.Default())
	if _, err := kv.Get(context.Background(), "no-namespace"); err == nil {
		t.Fatal("expected malformed key error")
	}
	if err := kv.Put(context.Background(), "no-namespace", &leads.Record{}); err == nil {
		t.Fatal("expected malformed key error")
	}
}

func TestListKeysNewestFirst(t *testing.T) {
	mock := newMockDynamo()
	kv := New(mock, "leadline", logging.Default())
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	var wantNewest string
	// Insert out of chronological order.
	for _, offset := range []time.Duration{2 * time.Hour, 0, 3 * time.Hour, time.Hour} {
		rec, key := testLead(t, base.Add(offset), "lead")
		if err := kv.Put(ctx, key, rec); err != nil {
			t.Fatalf("Put returned error: %v", err)
		}
		if offset == 3*time.Hour {
			wantNewest = key
		}
	}
	// A window record under another namespace must not leak into the listing.
	if err := kv.PutWindow(ctx, "1.2.3.4", &Window{WindowStartAt: base, Count: 1, LastSubmitAt: base}); err != nil {
		t.Fatalf("PutWindow returned error: %v", err)
	}

	keys, err := kv.ListKeys(ctx, leads.KeyPrefix)
	if err != nil {
		t.Fatalf("ListKeys returned error: %v", err)
	}
	if len(keys) != 4 {
		t.Fatalf("expected 4 lead keys, got %d", len(keys))
	}
	if keys[0] != wantNewest {
		t.Fatalf("expected newest key first, got %s", keys[0])
	}
	if !sort.SliceIsSorted(keys, func(i, j int) bool { return keys[i] > keys[j] }) {
		t.Fatal("keys are not in reverse lexical order")
	}
}

func TestGetManyPreservesOrderAndSkipsFailures(t *testing.T) {
	mock := newMockDynamo()
	kv := New(mock, "leadline", logging.Default())
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	var keys []string
	var names []string
	for i := 0; i < 6; i++ {
		rec, key := testLead(t, base.Add(time.Duration(i)*time.Minute), string(rune('a'+i)))
		if err := kv.Put(ctx, key, rec); err != nil {
			t.Fatalf("Put returned error: %v", err)
		}
		keys = append(keys, key)
		names = append(names, rec.Lead.Name)
	}
	// One missing key and one read failure should be filtered, not fatal.
	missing := leads.Key(leads.NewID(base.Add(time.Hour)))
	mock.failKeySuffix = leads.IDFromKey(keys[2])
	lookup := []string{keys[0], missing, keys[2], keys[3], keys[5]}

	records := kv.GetMany(ctx, lookup, 3)
	want := []string{names[0], names[3], names[5]}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for i, rec := range records {
		if rec.Lead.Name != want[i] {
			t.Errorf("records[%d].Name = %s, want %s", i, rec.Lead.Name, want[i])
		}
	}
}

func TestGetManyBoundsConcurrency(t *testing.T) {
	mock := newMockDynamo()
	mock.getDelay = 5 * time.Millisecond
	kv := New(mock, "leadline", logging.Default())
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	var keys []string
	for i := 0; i < 12; i++ {
		rec, key := testLead(t, base.Add(time.Duration(i)*time.Minute), "lead")
		if err := kv.Put(ctx, key, rec); err != nil {
			t.Fatalf("Put returned error: %v", err)
		}
		keys = append(keys, key)
	}

	records := kv.GetMany(ctx, keys, 4)
	if len(records) != len(keys) {
		t.Fatalf("expected %d records, got %d", len(keys), len(records))
	}
	if max := mock.maxInFlight.Load(); max > 4 {
		t.Fatalf("observed %d concurrent reads, want <= 4", max)
	}
}

func TestWindowRoundTrip(t *testing.T) {
	kv := New(newMockDynamo(), "leadline", logging.Default())
	ctx := context.Background()

	got, err := kv.GetWindow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("GetWindow returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil window for unknown source, got %+v", got)
	}

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	w := &Window{WindowStartAt: now, Count: 2, LastSubmitAt: now.Add(time.Minute)}
	if err := kv.PutWindow(ctx, "1.2.3.4", w); err != nil {
		t.Fatalf("PutWindow returned error: %v", err)
	}

	got, err = kv.GetWindow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("GetWindow returned error: %v", err)
	}
	if got == nil || got.Count != 2 || !got.WindowStartAt.Equal(now) {
		t.Fatalf("window round-trip mismatch: %+v", got)
	}
}
