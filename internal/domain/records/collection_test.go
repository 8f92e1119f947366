package records_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-logr/logr"

	"github.com/bryanwahyu/canscan/internal/domain/records"
	"github.com/bryanwahyu/canscan/internal/infra/db/memory"
)

type note struct {
	Text  string `json:"text"`
	Title string `json:"title"`
}

func (n *note) ApplyDefaults() {
	if n.Title == "" {
		n.Title = "untitled"
	}
}

func TestAppendExtendsCollectionByOne(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	log := logr.Discard()

	for i, text := range []string{"a", "b", "c"} {
		before, err := records.LoadList[note](ctx, store, log, "owner1", records.KeySymptoms)
		if err != nil {
			t.Fatalf("LoadList: %v", err)
		}
		if err := records.Append(ctx, store, log, "owner1", records.KeySymptoms, note{Text: text}); err != nil {
			t.Fatalf("Append: %v", err)
		}
		after, err := records.LoadList[note](ctx, store, log, "owner1", records.KeySymptoms)
		if err != nil {
			t.Fatalf("LoadList: %v", err)
		}
		if len(after) != len(before)+1 || len(after) != i+1 {
			t.Fatalf("expected %d items, got %d", i+1, len(after))
		}
		if after[len(after)-1].Text != text {
			t.Fatalf("expected last item %q, got %q", text, after[len(after)-1].Text)
		}
	}
}

func TestLoadListMissingIsEmpty(t *testing.T) {
	items, err := records.LoadList[note](context.Background(), memory.NewStore(), logr.Discard(), "nobody", records.KeyResults)
	if err != nil {
		t.Fatalf("LoadList: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
}

func TestLoadListCorruptIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for _, raw := range []string{"{not json", "42", `{"version":99,"items":[]}`, `[{"text":1}]`} {
		if err := store.Put(ctx, "o", records.KeyResults, []byte(raw)); err != nil {
			t.Fatalf("Put: %v", err)
		}
		items, err := records.LoadList[note](ctx, store, logr.Discard(), "o", records.KeyResults)
		if err != nil {
			t.Fatalf("LoadList(%q) returned error: %v", raw, err)
		}
		if len(items) != 0 {
			t.Fatalf("LoadList(%q): expected empty, got %d items", raw, len(items))
		}
	}
}

func TestAppendOverCorruptStartsFresh(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	_ = store.Put(ctx, "o", records.KeyResults, []byte("garbage"))

	if err := records.Append(ctx, store, logr.Discard(), "o", records.KeyResults, note{Text: "x"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	items, _ := records.LoadList[note](ctx, store, logr.Discard(), "o", records.KeyResults)
	if len(items) != 1 || items[0].Text != "x" {
		t.Fatalf("unexpected items: %#v", items)
	}
}

func TestLegacyArrayDecodesWithDefaults(t *testing.T) {
	items, err := records.DecodeList[note]([]byte(`[{"text":"old"}]`))
	if err != nil {
		t.Fatalf("DecodeList: %v", err)
	}
	if len(items) != 1 || items[0].Title != "untitled" {
		t.Fatalf("expected defaulted legacy item, got %#v", items)
	}
}

func TestEncodeListWritesEnvelope(t *testing.T) {
	data, err := records.EncodeList[note](nil)
	if err != nil {
		t.Fatalf("EncodeList: %v", err)
	}
	if string(data) != `{"version":1,"items":[]}` {
		t.Fatalf("unexpected encoding: %s", data)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	log := logr.Discard()
	_ = records.Append(ctx, store, log, "o", records.KeyResults, note{Text: "x"})

	for i := 0; i < 2; i++ {
		if err := records.Clear(ctx, store, "o", records.KeyResults); err != nil {
			t.Fatalf("Clear #%d: %v", i, err)
		}
		items, _ := records.LoadList[note](ctx, store, log, "o", records.KeyResults)
		if len(items) != 0 {
			t.Fatalf("expected empty after clear, got %d", len(items))
		}
	}
}

func TestModifyPropagatesCallbackError(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	sentinel := errors.New("nope")
	err := records.Modify(ctx, store, logr.Discard(), "o", records.KeyAllergies, func(items []note) ([]note, error) {
		return nil, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if _, err := store.Get(ctx, "o", records.KeyAllergies); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected nothing written, got %v", err)
	}
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	log := logr.Discard()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = records.Append(ctx, store, log, "o", records.KeyResults, note{Text: "x"})
		}()
	}
	wg.Wait()

	items, _ := records.LoadList[note](ctx, store, log, "o", records.KeyResults)
	if len(items) != 50 {
		t.Fatalf("expected 50 items, got %d", len(items))
	}
}

func TestObjectRoundTripAndLegacyShape(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	log := logr.Discard()

	if err := records.SaveObject(ctx, store, "o", records.KeyProfile, &note{Text: "me"}); err != nil {
		t.Fatalf("SaveObject: %v", err)
	}
	got, err := records.LoadObject[note](ctx, store, log, "o", records.KeyProfile)
	if err != nil || got == nil || got.Text != "me" {
		t.Fatalf("LoadObject: %#v, %v", got, err)
	}

	_ = store.Put(ctx, "o", records.KeyProfile, []byte(`{"text":"legacy"}`))
	got, err = records.LoadObject[note](ctx, store, log, "o", records.KeyProfile)
	if err != nil || got == nil || got.Text != "legacy" || got.Title != "untitled" {
		t.Fatalf("legacy LoadObject: %#v, %v", got, err)
	}
}

func TestLoadObjectRemovesCorrupt(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	_ = store.Put(ctx, "o", records.KeyProfile, []byte(`{broken`))

	got, err := records.LoadObject[note](ctx, store, logr.Discard(), "o", records.KeyProfile)
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %#v, %v", got, err)
	}
	if _, err := store.Get(ctx, "o", records.KeyProfile); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected corrupt profile removed, got %v", err)
	}
}
