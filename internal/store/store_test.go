package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"monthcal/internal/model"
	"monthcal/internal/store/storagemock"
)

var fixedNow = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func openMem(t *testing.T, events ...model.Event) (*Store, *MemoryStorage) {
	t.Helper()
	mem := NewMemoryStorage(events...)
	s, err := Open(context.Background(), mem, Options{Clock: fixedClock, Location: time.UTC})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s, mem
}

func sampleEvents() []model.Event {
	return []model.Event{
		{ID: 10, Title: "Team Meeting", Date: "2024-03-05", Time24: "10:00", Time: "10:00 AM", Color: model.ColorBlue},
		{ID: 11, Title: "Project Review", Date: "2024-03-06", Time24: "14:00", Time: "2:00 PM", Color: model.ColorGreen},
		{ID: 12, Title: "Retro", Date: "2024-03-01", Time24: "16:00", Time: "4:00 PM", Color: model.ColorPurple},
	}
}

func TestOpenSeedsFirstRun(t *testing.T) {
	s, mem := openMem(t)

	got := s.List()
	if len(got) != 2 {
		t.Fatalf("seed count = %d, want 2", len(got))
	}
	if got[0].Title != "Team Meeting" || got[0].Date != "2024-03-05" || got[0].Time != "10:00 AM" {
		t.Errorf("first seed = %+v", got[0])
	}
	if got[1].Title != "Project Review" || got[1].Date != "2024-03-06" || got[1].Time != "2:00 PM" {
		t.Errorf("second seed = %+v", got[1])
	}
	if mem.Saves() != 1 {
		t.Errorf("seed saves = %d, want 1", mem.Saves())
	}
}

func TestOpenKeepsEmptyCollection(t *testing.T) {
	mem := NewMemoryStorage()
	if err := mem.Save(context.Background(), []model.Event{}); err != nil {
		t.Fatal(err)
	}
	s, err := Open(context.Background(), mem, Options{Clock: fixedClock})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Errorf("an explicitly empty collection must not be reseeded, got %d events", s.Len())
	}
}

func TestSeedScenario(t *testing.T) {
	today := fixedNow
	s, _ := openMem(t, SeedEvents(today)...)

	on := s.EventsOn("2024-03-05")
	if len(on) != 1 || on[0].Title != "Team Meeting" {
		t.Errorf("EventsOn(T) = %+v", on)
	}

	up := s.Upcoming(today, 5)
	if len(up) != 2 || up[0].Date != "2024-03-05" || up[1].Date != "2024-03-06" {
		t.Errorf("Upcoming = %+v", up)
	}
}

func TestUpcoming(t *testing.T) {
	events := []model.Event{
		{ID: 1, Title: "late", Date: "2024-04-01", Time24: "10:00"},
		{ID: 2, Title: "past", Date: "2024-03-04", Time24: "10:00"},
		{ID: 3, Title: "today a", Date: "2024-03-05", Time24: "18:00"},
		{ID: 4, Title: "today b", Date: "2024-03-05", Time24: "08:00"},
		{ID: 5, Title: "mid", Date: "2024-03-20", Time24: "10:00"},
		{ID: 6, Title: "next", Date: "2024-03-06", Time24: "10:00"},
		{ID: 7, Title: "far", Date: "2025-01-01", Time24: "10:00"},
	}
	s, _ := openMem(t, events...)

	got := s.Upcoming(fixedNow, 5)
	var ids []int64
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	want := []int64{3, 4, 6, 5, 1}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}

	if n := len(s.Upcoming(fixedNow, 0)); n != 6 {
		t.Errorf("uncapped = %d, want 6", n)
	}
}

func TestCreateRejectsBlankTitle(t *testing.T) {
	s, mem := openMem(t, sampleEvents()...)
	before := s.List()

	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := s.Create(context.Background(), model.Draft{Title: title, Date: "2024-03-05", Time24: "09:00", Color: model.ColorGreen})
		if !errors.Is(err, ErrEmptyTitle) {
			t.Errorf("title %q: err = %v, want ErrEmptyTitle", title, err)
		}
	}
	if !reflect.DeepEqual(s.List(), before) {
		t.Error("collection changed after rejected create")
	}
	if mem.Saves() != 0 {
		t.Errorf("saves = %d, want 0", mem.Saves())
	}
}

func TestCreateRejectsBadDateAndTime(t *testing.T) {
	s, _ := openMem(t, sampleEvents()...)
	ctx := context.Background()

	if _, err := s.Create(ctx, model.Draft{Title: "x", Date: "2024-02-30", Time24: "09:00"}); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("bad date err = %v", err)
	}
	if _, err := s.Create(ctx, model.Draft{Title: "x", Date: "2024-02-03", Time24: "25:00"}); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("bad time err = %v", err)
	}
	if _, err := s.Create(ctx, model.Draft{Title: "x", Date: "2024-02-03", Time24: "9:00"}); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("unpadded time err = %v", err)
	}
	if s.Len() != 3 {
		t.Errorf("len = %d, want 3", s.Len())
	}
}

func TestCreateStandup(t *testing.T) {
	s, mem := openMem(t, sampleEvents()...)
	before := s.List()

	e, err := s.Create(context.Background(), model.Draft{
		Title: "Standup", Date: "2024-03-05", Time24: "09:00", Color: model.ColorGreen,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.Time != "9:00 AM" {
		t.Errorf("time = %q, want 9:00 AM", e.Time)
	}
	if e.ID != fixedNow.UnixMilli() {
		t.Errorf("id = %d, want creation timestamp %d", e.ID, fixedNow.UnixMilli())
	}
	for _, old := range before {
		if old.ID == e.ID {
			t.Fatalf("id %d reused", e.ID)
		}
	}
	if s.Len() != len(before)+1 {
		t.Errorf("len = %d, want %d", s.Len(), len(before)+1)
	}
	if mem.Saves() != 1 {
		t.Errorf("saves = %d, want 1", mem.Saves())
	}
	stored, _ := mem.Load(context.Background())
	if !reflect.DeepEqual(stored, s.List()) {
		t.Error("storage does not mirror memory")
	}
}

func TestCreateSameMillisecondGetsDistinctIDs(t *testing.T) {
	s, _ := openMem(t, sampleEvents()...)
	seen := map[int64]bool{}
	for i := 0; i < 5; i++ {
		e, err := s.Create(context.Background(), model.Draft{Title: fmt.Sprintf("e%d", i), Date: "2024-03-05", Time24: "09:00"})
		if err != nil {
			t.Fatal(err)
		}
		if seen[e.ID] {
			t.Fatalf("duplicate id %d", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestCreateNormalizesColor(t *testing.T) {
	s, _ := openMem(t, sampleEvents()...)
	e, err := s.Create(context.Background(), model.Draft{Title: "x", Date: "2024-03-05", Time24: "09:00", Color: "magenta"})
	if err != nil {
		t.Fatal(err)
	}
	if e.Color != model.ColorBlue {
		t.Errorf("color = %q, want blue", e.Color)
	}
}

func TestUpdateTouchesOnlyTarget(t *testing.T) {
	s, _ := openMem(t, sampleEvents()...)
	before := s.List()

	target := before[1]
	target.Title = "Project Review (moved)"
	target.Date = "2024-03-07"
	target.Time24 = "15:45"
	target.Time = "stale"
	target.Color = model.ColorOrange

	got, err := s.Update(context.Background(), target)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Time != "3:45 PM" {
		t.Errorf("time = %q, want 3:45 PM", got.Time)
	}

	after := s.List()
	if !reflect.DeepEqual(after[0], before[0]) || !reflect.DeepEqual(after[2], before[2]) {
		t.Error("non-target events changed")
	}
	if after[1] != got {
		t.Errorf("stored = %+v, want %+v", after[1], got)
	}
}

func TestUpdateRejects(t *testing.T) {
	s, mem := openMem(t, sampleEvents()...)
	before := s.List()

	blank := before[0]
	blank.Title = "  "
	if _, err := s.Update(context.Background(), blank); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("blank err = %v", err)
	}

	missing := before[0]
	missing.ID = 999
	if _, err := s.Update(context.Background(), missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}

	if !reflect.DeepEqual(s.List(), before) || mem.Saves() != 0 {
		t.Error("rejected update changed state")
	}
}

func TestDelete(t *testing.T) {
	s, _ := openMem(t, sampleEvents()...)

	if err := s.Delete(context.Background(), 11); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got := s.List()
	if len(got) != 2 || got[0].ID != 10 || got[1].ID != 12 {
		t.Errorf("after delete = %+v", got)
	}
	if err := s.Delete(context.Background(), 11); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestImportSkipsInvalid(t *testing.T) {
	s, mem := openMem(t, sampleEvents()...)
	created, skipped, err := s.Import(context.Background(), []model.Draft{
		{Title: "a", Date: "2024-03-10", Time24: "08:00", Color: model.ColorRed},
		{Title: "", Date: "2024-03-10", Time24: "08:00"},
		{Title: "b", Date: "2024-03-11", Time24: "09:15"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 2 || skipped != 1 {
		t.Errorf("created = %d, skipped = %d", len(created), skipped)
	}
	if mem.Saves() != 1 {
		t.Errorf("saves = %d, want one batch save", mem.Saves())
	}
	if s.Len() != 5 {
		t.Errorf("len = %d, want 5", s.Len())
	}
}

func TestSaveFailureRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	storage := storagemock.NewMockStorage(ctrl)
	storage.EXPECT().Load(gomock.Any()).Return(sampleEvents(), nil)
	storage.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full")).Times(3)

	s, err := Open(context.Background(), storage, Options{Clock: fixedClock})
	if err != nil {
		t.Fatal(err)
	}
	before := s.List()

	if _, err := s.Create(context.Background(), model.Draft{Title: "x", Date: "2024-03-05", Time24: "09:00"}); err == nil {
		t.Error("create should fail")
	}
	changed := before[0]
	changed.Title = "changed"
	if _, err := s.Update(context.Background(), changed); err == nil {
		t.Error("update should fail")
	}
	if err := s.Delete(context.Background(), before[0].ID); err == nil {
		t.Error("delete should fail")
	}

	if !reflect.DeepEqual(s.List(), before) {
		t.Error("memory diverged from storage after failed saves")
	}
}

func TestOpenLoadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	storage := storagemock.NewMockStorage(ctrl)
	storage.EXPECT().Load(gomock.Any()).Return(nil, errors.New("boom"))

	if _, err := Open(context.Background(), storage, Options{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestFileStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.json")
	fs := NewFileStorage(path)
	ctx := context.Background()

	if _, err := fs.Load(ctx); !errors.Is(err, ErrNoData) {
		t.Fatalf("missing file err = %v, want ErrNoData", err)
	}

	in := sampleEvents()
	if err := fs.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch:\n in: %+v\nout: %+v", in, out)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestFileStorageThroughStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	ctx := context.Background()

	s, err := Open(ctx, NewFileStorage(path), Options{Clock: fixedClock, Location: time.UTC})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, model.Draft{Title: "Standup", Date: "2024-03-05", Time24: "09:00", Color: model.ColorGreen}); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(ctx, NewFileStorage(path), Options{Clock: fixedClock, Location: time.UTC})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(reopened.List(), s.List()) {
		t.Errorf("reload mismatch:\n got %+v\nwant %+v", reopened.List(), s.List())
	}
}

func TestFileStorageMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	if err := os.WriteFile(path, []byte(`[{"id": "not a number"`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(context.Background(), NewFileStorage(path), Options{}); err == nil {
		t.Fatal("malformed storage must abort open")
	}

	// The bad file is left alone for the operator to inspect.
	data, _ := os.ReadFile(path)
	if string(data) != `[{"id": "not a number"` {
		t.Error("malformed file was overwritten")
	}
}
