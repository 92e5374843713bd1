package loader

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/torahstudy/limud/core/errors"
	"github.com/torahstudy/limud/core/torah"
)

func testSefer(id int) *torah.Sefer {
	return &torah.Sefer{
		SeferID:   id,
		SeferName: "ספר",
		Parshiot: []torah.Parsha{{
			ParshaID:   1,
			ParshaName: "פרשה",
			Perakim: []torah.Perek{{
				PerekNum: 1,
				Pesukim:  []torah.Pasuk{{PasukNum: 1, Text: "ויאמר יקוק"}},
			}},
		}},
	}
}

// spyCache records tier-2 traffic and serves from an in-memory map.
type spyCache struct {
	data map[int]*torah.Sefer
	gets int
	puts int
}

func newSpyCache() *spyCache {
	return &spyCache{data: map[int]*torah.Sefer{}}
}

func (s *spyCache) Get(ctx context.Context, seferID int) (*torah.Sefer, error) {
	s.gets++
	return s.data[seferID], nil
}

func (s *spyCache) Put(ctx context.Context, seferID int, sefer *torah.Sefer) {
	s.puts++
	s.data[seferID] = sefer
}

// spyStore records tier-3 traffic.
type spyStore struct {
	loads int
	fail  map[int]error
}

func (s *spyStore) LoadSefer(ctx context.Context, seferID int) (*torah.Sefer, error) {
	s.loads++
	if err := s.fail[seferID]; err != nil {
		return nil, err
	}
	return testSefer(seferID), nil
}

func TestResolveColdPopulatesBothTiers(t *testing.T) {
	db := newSpyCache()
	src := &spyStore{}
	l := New(db, src)
	ctx := context.Background()

	sefer, err := l.Resolve(ctx, torah.Bereishit)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sefer.SeferID != torah.Bereishit {
		t.Errorf("SeferID = %d", sefer.SeferID)
	}
	if src.loads != 1 {
		t.Errorf("store loads = %d, want 1", src.loads)
	}
	if db.puts != 1 {
		t.Errorf("db puts = %d, want 1", db.puts)
	}
	if !l.Resident(torah.Bereishit) {
		t.Error("sefer not resident in memory after cold resolve")
	}
}

func TestResolveMemoryHitSkipsLowerTiers(t *testing.T) {
	db := newSpyCache()
	src := &spyStore{}
	l := New(db, src)
	ctx := context.Background()

	if _, err := l.Resolve(ctx, torah.Shemot); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	dbGets, loads := db.gets, src.loads

	// Second resolve must be served entirely from memory.
	if _, err := l.Resolve(ctx, torah.Shemot); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if db.gets != dbGets {
		t.Errorf("db gets grew from %d to %d on warm resolve", dbGets, db.gets)
	}
	if src.loads != loads {
		t.Errorf("store loads grew from %d to %d on warm resolve", loads, src.loads)
	}
}

func TestResolveDBHitSkipsStore(t *testing.T) {
	db := newSpyCache()
	db.data[torah.Vayikra] = testSefer(torah.Vayikra)
	src := &spyStore{}
	l := New(db, src)

	sefer, err := l.Resolve(context.Background(), torah.Vayikra)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sefer == nil {
		t.Fatal("Resolve = nil")
	}
	if src.loads != 0 {
		t.Errorf("store loads = %d, want 0", src.loads)
	}
	if db.puts != 0 {
		t.Errorf("db puts = %d, want 0 on db hit", db.puts)
	}
	if !l.Resident(torah.Vayikra) {
		t.Error("db hit did not promote sefer into memory")
	}
}

func TestResolveAppliesTextCorrection(t *testing.T) {
	l := New(newSpyCache(), &spyStore{})

	sefer, err := l.Resolve(context.Background(), torah.Bereishit)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got := sefer.Parshiot[0].Perakim[0].Pesukim[0].Text
	if got != "ויאמר יהוה" {
		t.Errorf("pasuk text = %q, want corrected divine name", got)
	}
}

func TestResolveStoreFailurePropagates(t *testing.T) {
	src := &spyStore{fail: map[int]error{
		torah.Devarim: errors.NewNotFound("sefer asset", "devarim.json"),
	}}
	l := New(newSpyCache(), src)

	_, err := l.Resolve(context.Background(), torah.Devarim)
	if err == nil {
		t.Fatal("Resolve succeeded despite store failure")
	}
	if !stderrors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want wrapped ErrNotFound", err)
	}
	if l.Resident(torah.Devarim) {
		t.Error("failed resolve left a memory entry")
	}
}

func TestResolveInvalidID(t *testing.T) {
	l := New(newSpyCache(), &spyStore{})
	for _, id := range []int{0, 6, -1} {
		if _, err := l.Resolve(context.Background(), id); err == nil {
			t.Errorf("Resolve(%d) succeeded", id)
		}
	}
}

func TestResolveNilDB(t *testing.T) {
	src := &spyStore{}
	l := New(nil, src)

	sefer, err := l.Resolve(context.Background(), torah.Bamidbar)
	if err != nil {
		t.Fatalf("Resolve without persistent tier: %v", err)
	}
	if sefer == nil || src.loads != 1 {
		t.Errorf("sefer = %v, loads = %d", sefer, src.loads)
	}
}

func TestResolveAllContinuesPastFailure(t *testing.T) {
	src := &spyStore{fail: map[int]error{
		torah.Vayikra: errors.NewIO("read", "vayikra.json", errors.ErrInternal),
	}}
	l := New(newSpyCache(), src)

	sefarim := l.ResolveAll(context.Background())
	if len(sefarim) != torah.SeferCount-1 {
		t.Fatalf("len(sefarim) = %d, want %d", len(sefarim), torah.SeferCount-1)
	}
	for _, s := range sefarim {
		if s.SeferID == torah.Vayikra {
			t.Error("failed sefer present in ResolveAll output")
		}
	}
}

func TestClearMemory(t *testing.T) {
	l := New(newSpyCache(), &spyStore{})
	if _, err := l.Resolve(context.Background(), torah.Bereishit); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	l.ClearMemory()
	if l.Resident(torah.Bereishit) {
		t.Error("sefer resident after ClearMemory")
	}
	if l.MemStats().Size != 0 {
		t.Errorf("Size = %d after ClearMemory", l.MemStats().Size)
	}
}
