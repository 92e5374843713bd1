package userdata

import (
	"encoding/json"
	"os"
	"time"

	"github.com/torahstudy/limud/core/errors"
)

// ExportVersion tags exported backup blobs.
const ExportVersion = "1.0.0"

// ExportedData is a versioned backup of all personal study records.
type ExportedData struct {
	Version    string             `json:"version"`
	ExportDate string             `json:"exportDate"`
	Highlights []Highlight        `json:"highlights"`
	Notes      []Note             `json:"notes"`
	Questions  []PersonalQuestion `json:"questions"`
	Bookmarks  []Bookmark         `json:"bookmarks"`
}

// Export snapshots all records into a backup blob.
func (s *Store) Export() ExportedData {
	return ExportedData{
		Version:    ExportVersion,
		ExportDate: timeNow().UTC().Format(time.RFC3339),
		Highlights: s.Highlights(),
		Notes:      s.Notes(),
		Questions:  s.Questions(),
		Bookmarks:  s.Bookmarks(),
	}
}

// ExportToFile writes the backup blob as indented JSON.
func (s *Store) ExportToFile(path string) error {
	data, err := json.MarshalIndent(s.Export(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal export")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

// Import replaces all records with the contents of a backup blob.
func (s *Store) Import(data ExportedData) error {
	if data.Version == "" {
		return errors.NewValidation("version", "backup blob has no version tag")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = data.Notes
	s.questions = data.Questions
	s.highlights = data.Highlights
	s.bookmarks = data.Bookmarks
	s.saveBlob(notesFile, s.notes)
	s.saveBlob(questionsFile, s.questions)
	s.saveBlob(highlightsFile, s.highlights)
	s.saveBlob(bookmarksFile, s.bookmarks)
	return nil
}

// ImportFromFile reads a backup blob written by ExportToFile.
func (s *Store) ImportFromFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.NewIO("read", path, err)
	}
	var data ExportedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return errors.NewParse("JSON", path, err.Error())
	}
	return s.Import(data)
}
