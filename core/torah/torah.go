// Package torah defines the Chumash corpus data model.
//
// The corpus is five immutable documents (sefarim), one per book of the
// Torah, each a nested tree: sefer -> parsha -> perek -> pasuk ->
// commentary content -> question -> perush. Documents are produced once
// by the asset pipeline and never mutated at runtime; only cached copies
// of them have a lifecycle.
package torah

import "fmt"

// Sefer identifiers. The corpus always contains exactly five sefarim.
const (
	Bereishit = 1
	Shemot    = 2
	Vayikra   = 3
	Bamidbar  = 4
	Devarim   = 5

	// SeferCount is the number of sefarim in the corpus.
	SeferCount = 5
)

// SeferIDs returns the canonical ascending list of sefer identifiers.
func SeferIDs() []int {
	return []int{Bereishit, Shemot, Vayikra, Bamidbar, Devarim}
}

// ValidSeferID reports whether id identifies a sefer in the corpus.
func ValidSeferID(id int) bool {
	return id >= Bereishit && id <= Devarim
}

// Perush is a single commentary answer attributed to a mefaresh.
type Perush struct {
	ID       int    `json:"id"`
	Mefaresh string `json:"mefaresh"`
	Text     string `json:"text"`
}

// Question is a commentary question with its perushim.
type Question struct {
	ID       int      `json:"id"`
	Text     string   `json:"text"`
	Perushim []Perush `json:"perushim"`
}

// Content is a titled commentary block attached to a pasuk.
type Content struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Pasuk is a single verse with its commentary content.
type Pasuk struct {
	ID       int       `json:"id"`
	PasukNum int       `json:"pasuk_num"`
	Text     string    `json:"text"`
	Content  []Content `json:"content"`
}

// Perek is a numbered chapter containing pesukim.
type Perek struct {
	PerekNum int     `json:"perek_num"`
	Pesukim  []Pasuk `json:"pesukim"`
}

// Parsha is a named weekly portion containing perakim.
type Parsha struct {
	ParshaID   int     `json:"parsha_id"`
	ParshaName string  `json:"parsha_name"`
	Perakim    []Perek `json:"perakim"`
}

// Sefer is a top-level corpus document (one book of the Torah).
type Sefer struct {
	SeferID     int      `json:"sefer_id"`
	SeferName   string   `json:"sefer_name"`
	EnglishName string   `json:"english_name"`
	Parshiot    []Parsha `json:"parshiot"`
}

// FlatPasuk is a denormalized pasuk projection carrying its position in
// the corpus. It is the unit the search engine and list rendering
// operate on, produced fresh from a Sefer and never persisted.
type FlatPasuk struct {
	ID         int       `json:"id"`
	Sefer      int       `json:"sefer"`
	SeferName  string    `json:"sefer_name"`
	Perek      int       `json:"perek"`
	PasukNum   int       `json:"pasuk_num"`
	Text       string    `json:"text"`
	Content    []Content `json:"content"`
	ParshaID   int       `json:"parsha_id,omitempty"`
	ParshaName string    `json:"parsha_name,omitempty"`
}

// Ref returns a human-readable reference like "Bereishit 3:15".
func (p FlatPasuk) Ref() string {
	return fmt.Sprintf("%s %d:%d", p.SeferName, p.Perek, p.PasukNum)
}

// GetParsha returns a parsha by its identifier, or nil if absent.
func (s *Sefer) GetParsha(id int) *Parsha {
	for i := range s.Parshiot {
		if s.Parshiot[i].ParshaID == id {
			return &s.Parshiot[i]
		}
	}
	return nil
}

// GetPerek returns a perek by number, or nil if absent.
func (p *Parsha) GetPerek(num int) *Perek {
	for i := range p.Perakim {
		if p.Perakim[i].PerekNum == num {
			return &p.Perakim[i]
		}
	}
	return nil
}

// GetPasuk returns a pasuk by its pasuk number, or nil if absent.
func (p *Perek) GetPasuk(num int) *Pasuk {
	for i := range p.Pesukim {
		if p.Pesukim[i].PasukNum == num {
			return &p.Pesukim[i]
		}
	}
	return nil
}

// PasukCount returns the number of pesukim in the sefer.
func (s *Sefer) PasukCount() int {
	n := 0
	for _, parsha := range s.Parshiot {
		for _, perek := range parsha.Perakim {
			n += len(perek.Pesukim)
		}
	}
	return n
}

// Flatten produces the FlatPasuk projection of a sefer in document
// order. The returned slice shares Content with the source sefer; the
// slice itself is freshly allocated on every call.
func Flatten(s *Sefer) []FlatPasuk {
	if s == nil {
		return nil
	}
	flat := make([]FlatPasuk, 0, s.PasukCount())
	for _, parsha := range s.Parshiot {
		for _, perek := range parsha.Perakim {
			for _, pasuk := range perek.Pesukim {
				flat = append(flat, FlatPasuk{
					ID:         pasuk.ID,
					Sefer:      s.SeferID,
					SeferName:  s.SeferName,
					Perek:      perek.PerekNum,
					PasukNum:   pasuk.PasukNum,
					Text:       pasuk.Text,
					Content:    pasuk.Content,
					ParshaID:   parsha.ParshaID,
					ParshaName: parsha.ParshaName,
				})
			}
		}
	}
	return flat
}

// FlattenAll flattens multiple sefarim in the order given, skipping nil
// entries. Used to assemble the search corpus from whichever sefarim
// loaded successfully.
func FlattenAll(sefarim []*Sefer) []FlatPasuk {
	var flat []FlatPasuk
	for _, s := range sefarim {
		flat = append(flat, Flatten(s)...)
	}
	return flat
}

// Validate checks structural invariants of a sefer document.
func (s *Sefer) Validate() error {
	if !ValidSeferID(s.SeferID) {
		return fmt.Errorf("invalid sefer id %d", s.SeferID)
	}
	if s.SeferName == "" {
		return fmt.Errorf("sefer %d: name is required", s.SeferID)
	}
	if len(s.Parshiot) == 0 {
		return fmt.Errorf("sefer %d: must have at least one parsha", s.SeferID)
	}
	for _, parsha := range s.Parshiot {
		if len(parsha.Perakim) == 0 {
			return fmt.Errorf("sefer %d: parsha %d has no perakim", s.SeferID, parsha.ParshaID)
		}
		for _, perek := range parsha.Perakim {
			if perek.PerekNum < 1 {
				return fmt.Errorf("sefer %d: perek number %d out of range", s.SeferID, perek.PerekNum)
			}
			for _, pasuk := range perek.Pesukim {
				if pasuk.PasukNum < 1 {
					return fmt.Errorf("sefer %d: perek %d: pasuk number %d out of range",
						s.SeferID, perek.PerekNum, pasuk.PasukNum)
				}
			}
		}
	}
	return nil
}
