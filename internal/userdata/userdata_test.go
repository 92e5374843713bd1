package userdata

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, dir
}

func TestNotesCRUD(t *testing.T) {
	s, _ := openTestStore(t)

	note := s.AddNote("1-1-3", "למה נברא האור תחילה")
	if note.ID == "" {
		t.Fatal("AddNote returned empty ID")
	}
	if note.CreatedAt == 0 {
		t.Error("AddNote left CreatedAt unset")
	}

	other := s.AddNote("2-1-1", "הערה אחרת")

	got := s.NotesForPasuk("1-1-3")
	if len(got) != 1 || got[0].ID != note.ID {
		t.Fatalf("NotesForPasuk = %+v", got)
	}
	if len(s.Notes()) != 2 {
		t.Fatalf("Notes = %d, want 2", len(s.Notes()))
	}

	if err := s.UpdateNote(note.ID, "נוסח מתוקן"); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if got := s.NotesForPasuk("1-1-3"); got[0].Content != "נוסח מתוקן" {
		t.Errorf("content after update = %q", got[0].Content)
	}

	if err := s.DeleteNote(note.ID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if len(s.Notes()) != 1 || s.Notes()[0].ID != other.ID {
		t.Errorf("Notes after delete = %+v", s.Notes())
	}

	if err := s.UpdateNote("missing", "x"); err == nil {
		t.Error("UpdateNote succeeded for unknown id")
	}
	if err := s.DeleteNote("missing"); err == nil {
		t.Error("DeleteNote succeeded for unknown id")
	}
}

func TestQuestionsCRUD(t *testing.T) {
	s, _ := openTestStore(t)

	q := s.AddQuestion("1-2-4", "מה פירוש הדבר")
	if q.Answer != "" {
		t.Errorf("new question has answer %q", q.Answer)
	}

	if err := s.UpdateQuestion(q.ID, q.Question, "כך נראה לי"); err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}
	got := s.QuestionsForPasuk("1-2-4")
	if len(got) != 1 || got[0].Answer != "כך נראה לי" {
		t.Fatalf("QuestionsForPasuk = %+v", got)
	}

	if err := s.DeleteQuestion(q.ID); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}
	if len(s.Questions()) != 0 {
		t.Errorf("Questions after delete = %+v", s.Questions())
	}
}

func TestHighlights(t *testing.T) {
	s, _ := openTestStore(t)

	h := s.AddHighlight(Highlight{
		PasukID:    "3-1-1",
		Text:       "ויקרא",
		Color:      "yellow",
		StartIndex: 0,
		EndIndex:   5,
	})
	if h.ID == "" {
		t.Fatal("AddHighlight returned empty ID")
	}

	got := s.HighlightsForPasuk("3-1-1")
	if len(got) != 1 || got[0].Color != "yellow" {
		t.Fatalf("HighlightsForPasuk = %+v", got)
	}

	if err := s.RemoveHighlight(h.ID); err != nil {
		t.Fatalf("RemoveHighlight: %v", err)
	}
	if len(s.Highlights()) != 0 {
		t.Errorf("Highlights after remove = %+v", s.Highlights())
	}
}

func TestBookmarks(t *testing.T) {
	s, _ := openTestStore(t)

	base := time.Now()
	timeNow = func() time.Time { return base }
	defer func() { timeNow = time.Now }()

	b := s.AddBookmark(Bookmark{Sefer: 1, SeferName: "בראשית", Perek: 3, Pasuk: 15})
	if b.ID == "" || b.CreatedAt != base.UnixMilli() {
		t.Fatalf("AddBookmark = %+v", b)
	}
	if b.Tags == nil {
		t.Error("Tags not initialized to empty slice")
	}

	timeNow = func() time.Time { return base.Add(time.Hour) }
	if err := s.TouchBookmark(b.ID); err != nil {
		t.Fatalf("TouchBookmark: %v", err)
	}
	got := s.Bookmarks()
	if len(got) != 1 || got[0].LastVisited != base.Add(time.Hour).UnixMilli() {
		t.Fatalf("Bookmarks = %+v", got)
	}

	if err := s.DeleteBookmark(b.ID); err != nil {
		t.Fatalf("DeleteBookmark: %v", err)
	}
	if len(s.Bookmarks()) != 0 {
		t.Errorf("Bookmarks after delete = %+v", s.Bookmarks())
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	s, dir := openTestStore(t)
	note := s.AddNote("1-1-1", "הערה")
	s.AddHighlight(Highlight{PasukID: "1-1-1", Text: "בראשית", Color: "green"})
	s.AddBookmark(Bookmark{Sefer: 2, SeferName: "שמות", Perek: 1, Pasuk: 1})

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Notes(); len(got) != 1 || got[0].ID != note.ID {
		t.Errorf("notes after reopen = %+v", got)
	}
	if len(reopened.Highlights()) != 1 {
		t.Errorf("highlights after reopen = %+v", reopened.Highlights())
	}
	if len(reopened.Bookmarks()) != 1 {
		t.Errorf("bookmarks after reopen = %+v", reopened.Bookmarks())
	}
}

func TestOpenWithCorruptBlob(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, notesFile), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write corrupt blob: %v", err)
	}

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open with corrupt blob: %v", err)
	}
	if len(s.Notes()) != 0 {
		t.Errorf("Notes = %+v, want fresh start", s.Notes())
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	s.AddNote("1-1-1", "הערה")
	s.AddQuestion("1-1-2", "שאלה")
	s.AddHighlight(Highlight{PasukID: "1-1-3", Text: "אור", Color: "blue"})
	s.AddBookmark(Bookmark{Sefer: 1, SeferName: "בראשית", Perek: 1, Pasuk: 1})

	backup := s.Export()
	if backup.Version != ExportVersion {
		t.Errorf("Version = %q", backup.Version)
	}
	if backup.ExportDate == "" {
		t.Error("ExportDate empty")
	}

	other, _ := openTestStore(t)
	if err := other.Import(backup); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(other.Notes()) != 1 || len(other.Questions()) != 1 ||
		len(other.Highlights()) != 1 || len(other.Bookmarks()) != 1 {
		t.Error("imported store missing records")
	}
}

func TestImportReplacesExisting(t *testing.T) {
	s, _ := openTestStore(t)
	s.AddNote("1-1-1", "ישנה")

	if err := s.Import(ExportedData{Version: ExportVersion}); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(s.Notes()) != 0 {
		t.Errorf("Notes after import = %+v, want replaced", s.Notes())
	}
}

func TestImportRejectsUnversioned(t *testing.T) {
	s, _ := openTestStore(t)
	if err := s.Import(ExportedData{}); err == nil {
		t.Error("Import accepted a blob with no version tag")
	}
}

func TestExportImportFile(t *testing.T) {
	s, _ := openTestStore(t)
	s.AddNote("1-1-1", "הערה")

	path := filepath.Join(t.TempDir(), "backup.json")
	if err := s.ExportToFile(path); err != nil {
		t.Fatalf("ExportToFile: %v", err)
	}

	other, _ := openTestStore(t)
	if err := other.ImportFromFile(path); err != nil {
		t.Fatalf("ImportFromFile: %v", err)
	}
	if len(other.Notes()) != 1 {
		t.Errorf("Notes = %+v", other.Notes())
	}
}
