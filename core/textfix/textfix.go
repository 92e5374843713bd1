// Package textfix applies corrections for known data-entry errors in the
// corpus source text.
//
// The corrections are pure string substitutions and idempotent: applying
// the pass twice yields the same output as applying it once. The fix is
// applied on every path that materializes a sefer from outside the
// in-memory cache, so cached copies written under an earlier asset
// revision still read correctly.
package textfix

import (
	"strings"

	"github.com/torahstudy/limud/core/torah"
)

// replacer holds the known source-text corrections.
//
//   - "אבן עזרה" is a recurring misspelling of the mefaresh אבן עזרא.
//   - "יקוק" is a keyboard substitution for יהוה used during data entry.
var replacer = strings.NewReplacer(
	"אבן עזרה", "אבן עזרא",
	"יקוק", "יהוה",
)

// FixText returns text with all known corrections applied.
func FixText(text string) string {
	return replacer.Replace(text)
}

// FixSefer returns a corrected deep copy of the sefer. The input is
// never mutated; corpus documents are immutable once loaded.
func FixSefer(s *torah.Sefer) *torah.Sefer {
	if s == nil {
		return nil
	}
	out := &torah.Sefer{
		SeferID:     s.SeferID,
		SeferName:   FixText(s.SeferName),
		EnglishName: s.EnglishName,
		Parshiot:    make([]torah.Parsha, len(s.Parshiot)),
	}
	for i, parsha := range s.Parshiot {
		out.Parshiot[i] = torah.Parsha{
			ParshaID:   parsha.ParshaID,
			ParshaName: FixText(parsha.ParshaName),
			Perakim:    make([]torah.Perek, len(parsha.Perakim)),
		}
		for j, perek := range parsha.Perakim {
			out.Parshiot[i].Perakim[j] = torah.Perek{
				PerekNum: perek.PerekNum,
				Pesukim:  make([]torah.Pasuk, len(perek.Pesukim)),
			}
			for k, pasuk := range perek.Pesukim {
				out.Parshiot[i].Perakim[j].Pesukim[k] = fixPasuk(pasuk)
			}
		}
	}
	return out
}

func fixPasuk(p torah.Pasuk) torah.Pasuk {
	out := torah.Pasuk{
		ID:       p.ID,
		PasukNum: p.PasukNum,
		Text:     FixText(p.Text),
		Content:  make([]torah.Content, len(p.Content)),
	}
	for i, content := range p.Content {
		out.Content[i] = torah.Content{
			ID:        content.ID,
			Title:     FixText(content.Title),
			Questions: make([]torah.Question, len(content.Questions)),
		}
		for j, question := range content.Questions {
			fixed := torah.Question{
				ID:       question.ID,
				Text:     FixText(question.Text),
				Perushim: make([]torah.Perush, len(question.Perushim)),
			}
			for k, perush := range question.Perushim {
				fixed.Perushim[k] = torah.Perush{
					ID:       perush.ID,
					Mefaresh: FixText(perush.Mefaresh),
					Text:     FixText(perush.Text),
				}
			}
			out.Content[i].Questions[j] = fixed
		}
	}
	return out
}
