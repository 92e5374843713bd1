// Package userdata persists the user's personal study records: notes,
// personal questions, text highlights, and bookmarks.
//
// Each domain is a single JSON blob on disk, read fully on open and
// rewritten on every mutation. All persistence is local-device and
// best-effort; a failed write is logged and the in-memory state stays
// authoritative for the session.
package userdata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/torahstudy/limud/core/errors"
	"github.com/torahstudy/limud/internal/logging"
)

// Note is a free-form note attached to a pasuk.
type Note struct {
	ID        string `json:"id"`
	PasukID   string `json:"pasukId"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

// PersonalQuestion is a user-authored question on a pasuk, optionally
// answered later.
type PersonalQuestion struct {
	ID        string `json:"id"`
	PasukID   string `json:"pasukId"`
	Question  string `json:"question"`
	Answer    string `json:"answer,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// Highlight marks a span of pasuk text with a color.
type Highlight struct {
	ID         string `json:"id"`
	PasukID    string `json:"pasukId"`
	Text       string `json:"text"`
	Color      string `json:"color"`
	StartIndex int    `json:"startIndex"`
	EndIndex   int    `json:"endIndex"`
}

// Bookmark marks a position in the corpus.
type Bookmark struct {
	ID          string   `json:"id"`
	Sefer       int      `json:"sefer"`
	SeferName   string   `json:"seferName"`
	Parsha      int      `json:"parsha,omitempty"`
	ParshaName  string   `json:"parshaName,omitempty"`
	Perek       int      `json:"perek"`
	Pasuk       int      `json:"pasuk"`
	PasukText   string   `json:"pasukText,omitempty"`
	Color       string   `json:"color,omitempty"`
	Tags        []string `json:"tags"`
	CreatedAt   int64    `json:"createdAt"`
	LastVisited int64    `json:"lastVisited,omitempty"`
	Note        string   `json:"note,omitempty"`
}

// File names, one JSON blob per domain.
const (
	notesFile      = "notes.json"
	questionsFile  = "questions.json"
	highlightsFile = "highlights.json"
	bookmarksFile  = "bookmarks.json"
)

// Injectable clock for deterministic tests.
var timeNow = time.Now

// Store holds all personal study records for one data directory.
type Store struct {
	mu         sync.Mutex
	dir        string
	notes      []Note
	questions  []PersonalQuestion
	highlights []Highlight
	bookmarks  []Bookmark
}

// Open loads (or initializes) a store rooted at dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewIO("create", dir, err)
	}
	s := &Store{dir: dir}
	loadBlob(filepath.Join(dir, notesFile), &s.notes)
	loadBlob(filepath.Join(dir, questionsFile), &s.questions)
	loadBlob(filepath.Join(dir, highlightsFile), &s.highlights)
	loadBlob(filepath.Join(dir, bookmarksFile), &s.bookmarks)
	return s, nil
}

// loadBlob reads a JSON blob into out. A missing or unreadable blob
// leaves out empty; personal data is never worth failing startup over.
func loadBlob(path string, out interface{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("userdata read failed", "path", path, "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		logging.Warn("userdata blob corrupt, starting fresh", "path", path, "error", err)
	}
}

// saveBlob writes a JSON blob atomically (temp file + rename).
func (s *Store) saveBlob(name string, v interface{}) {
	path := filepath.Join(s.dir, name)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logging.Warn("userdata marshal failed", "path", path, "error", err)
		return
	}
	tmp, err := os.CreateTemp(s.dir, "."+name+"-*")
	if err != nil {
		logging.Warn("userdata write failed", "path", path, "error", err)
		return
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		logging.Warn("userdata write failed", "path", path, "error", err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		logging.Warn("userdata write failed", "path", path, "error", err)
		return
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		logging.Warn("userdata write failed", "path", path, "error", err)
	}
}

// ---- Notes ----

// Notes returns all notes.
func (s *Store) Notes() []Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Note(nil), s.notes...)
}

// NotesForPasuk returns the notes attached to a pasuk.
func (s *Store) NotesForPasuk(pasukID string) []Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Note
	for _, n := range s.notes {
		if n.PasukID == pasukID {
			out = append(out, n)
		}
	}
	return out
}

// AddNote creates a note on a pasuk.
func (s *Store) AddNote(pasukID, content string) Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	note := Note{
		ID:        uuid.New().String(),
		PasukID:   pasukID,
		Content:   content,
		CreatedAt: timeNow().UnixMilli(),
	}
	s.notes = append(s.notes, note)
	s.saveBlob(notesFile, s.notes)
	return note
}

// UpdateNote replaces a note's content.
func (s *Store) UpdateNote(id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notes {
		if s.notes[i].ID == id {
			s.notes[i].Content = content
			s.saveBlob(notesFile, s.notes)
			return nil
		}
	}
	return errors.NewNotFound("note", id)
}

// DeleteNote removes a note.
func (s *Store) DeleteNote(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notes {
		if s.notes[i].ID == id {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			s.saveBlob(notesFile, s.notes)
			return nil
		}
	}
	return errors.NewNotFound("note", id)
}

// ---- Personal questions ----

// Questions returns all personal questions.
func (s *Store) Questions() []PersonalQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PersonalQuestion(nil), s.questions...)
}

// QuestionsForPasuk returns the personal questions on a pasuk.
func (s *Store) QuestionsForPasuk(pasukID string) []PersonalQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []PersonalQuestion
	for _, q := range s.questions {
		if q.PasukID == pasukID {
			out = append(out, q)
		}
	}
	return out
}

// AddQuestion creates a personal question on a pasuk.
func (s *Store) AddQuestion(pasukID, question string) PersonalQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := PersonalQuestion{
		ID:        uuid.New().String(),
		PasukID:   pasukID,
		Question:  question,
		CreatedAt: timeNow().UnixMilli(),
	}
	s.questions = append(s.questions, q)
	s.saveBlob(questionsFile, s.questions)
	return q
}

// UpdateQuestion replaces a question's text and answer.
func (s *Store) UpdateQuestion(id, question, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.questions {
		if s.questions[i].ID == id {
			s.questions[i].Question = question
			s.questions[i].Answer = answer
			s.saveBlob(questionsFile, s.questions)
			return nil
		}
	}
	return errors.NewNotFound("question", id)
}

// DeleteQuestion removes a personal question.
func (s *Store) DeleteQuestion(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.questions {
		if s.questions[i].ID == id {
			s.questions = append(s.questions[:i], s.questions[i+1:]...)
			s.saveBlob(questionsFile, s.questions)
			return nil
		}
	}
	return errors.NewNotFound("question", id)
}

// ---- Highlights ----

// Highlights returns all highlights.
func (s *Store) Highlights() []Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Highlight(nil), s.highlights...)
}

// HighlightsForPasuk returns the highlights on a pasuk.
func (s *Store) HighlightsForPasuk(pasukID string) []Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Highlight
	for _, h := range s.highlights {
		if h.PasukID == pasukID {
			out = append(out, h)
		}
	}
	return out
}

// AddHighlight records a highlight span on a pasuk.
func (s *Store) AddHighlight(h Highlight) Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	h.ID = uuid.New().String()
	s.highlights = append(s.highlights, h)
	s.saveBlob(highlightsFile, s.highlights)
	return h
}

// RemoveHighlight deletes a highlight.
func (s *Store) RemoveHighlight(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.highlights {
		if s.highlights[i].ID == id {
			s.highlights = append(s.highlights[:i], s.highlights[i+1:]...)
			s.saveBlob(highlightsFile, s.highlights)
			return nil
		}
	}
	return errors.NewNotFound("highlight", id)
}

// ---- Bookmarks ----

// Bookmarks returns all bookmarks.
func (s *Store) Bookmarks() []Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Bookmark(nil), s.bookmarks...)
}

// AddBookmark records a bookmark.
func (s *Store) AddBookmark(b Bookmark) Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = uuid.New().String()
	b.CreatedAt = timeNow().UnixMilli()
	if b.Tags == nil {
		b.Tags = []string{}
	}
	s.bookmarks = append(s.bookmarks, b)
	s.saveBlob(bookmarksFile, s.bookmarks)
	return b
}

// TouchBookmark updates a bookmark's last-visited timestamp.
func (s *Store) TouchBookmark(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bookmarks {
		if s.bookmarks[i].ID == id {
			s.bookmarks[i].LastVisited = timeNow().UnixMilli()
			s.saveBlob(bookmarksFile, s.bookmarks)
			return nil
		}
	}
	return errors.NewNotFound("bookmark", id)
}

// DeleteBookmark removes a bookmark.
func (s *Store) DeleteBookmark(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bookmarks {
		if s.bookmarks[i].ID == id {
			s.bookmarks = append(s.bookmarks[:i], s.bookmarks[i+1:]...)
			s.saveBlob(bookmarksFile, s.bookmarks)
			return nil
		}
	}
	return errors.NewNotFound("bookmark", id)
}
