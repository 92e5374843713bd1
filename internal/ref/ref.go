// Package ref parses pasuk references like "Bereishit 3:15" or
// "bereishit 3:15-4:2" into corpus positions. Used by the CLI and to
// seed search filters from a typed reference.
package ref

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/torahstudy/limud/core/torah"
)

// Range is a parsed reference that may span pesukim or perakim.
// For single-pasuk references PerekEnd and PasukEnd stay nil.
type Range struct {
	Sefer      string `parser:"@Sefer"`
	PerekStart *int   `parser:"( @Number"`
	PasukStart *int   `parser:"( ':' @Number )?"`
	PerekEnd   *int   `parser:"( '-' ( @Number"`
	PasukEnd   *int   `parser:"    ( ':' @Number )? )? )? )?"`
}

// refLexer tokenizes references. Sefer names may be transliterated
// (Bereishit), English (Genesis), or Hebrew (בראשית).
var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Sefer", Pattern: `[A-Za-z\x{0590}-\x{05FF}]+`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Dash", Pattern: `-`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var refParser = participle.MustBuild[Range](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// seferAliases maps accepted sefer names (lower-cased) to identifiers.
var seferAliases = map[string]int{
	"bereishit": torah.Bereishit, "bereshit": torah.Bereishit, "genesis": torah.Bereishit, "בראשית": torah.Bereishit,
	"shemot": torah.Shemot, "shmot": torah.Shemot, "exodus": torah.Shemot, "שמות": torah.Shemot,
	"vayikra": torah.Vayikra, "leviticus": torah.Vayikra, "ויקרא": torah.Vayikra,
	"bamidbar": torah.Bamidbar, "numbers": torah.Bamidbar, "במדבר": torah.Bamidbar,
	"devarim": torah.Devarim, "deuteronomy": torah.Devarim, "דברים": torah.Devarim,
}

// Parse parses a reference string. Supported forms:
//   - "Bereishit"           (whole sefer)
//   - "Bereishit 3"         (whole perek)
//   - "Bereishit 3:15"      (single pasuk)
//   - "Bereishit 3:15-20"   (pasuk range; 20 is a perek without a colon,
//     disambiguated by Normalize)
//   - "Bereishit 3:15-4:2"  (range across perakim)
func Parse(input string) (*Range, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty reference")
	}
	r, err := refParser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reference %q: %w", input, err)
	}
	return r, nil
}

// SeferID resolves the parsed sefer name to its identifier.
func (r *Range) SeferID() (int, error) {
	id, ok := seferAliases[strings.ToLower(r.Sefer)]
	if !ok {
		return 0, fmt.Errorf("unknown sefer %q", r.Sefer)
	}
	return id, nil
}

// Position is a concrete corpus position.
type Position struct {
	Sefer int
	Perek int // 0 means whole sefer
	Pasuk int // 0 means whole perek
}

// Start returns the starting position of the range.
func (r *Range) Start() (Position, error) {
	id, err := r.SeferID()
	if err != nil {
		return Position{}, err
	}
	pos := Position{Sefer: id}
	if r.PerekStart != nil {
		pos.Perek = *r.PerekStart
	}
	if r.PasukStart != nil {
		pos.Pasuk = *r.PasukStart
	}
	return pos, nil
}

// End returns the end position of the range. For "3:15-20" the bare
// trailing number is a pasuk within the starting perek, not a perek.
func (r *Range) End() (Position, error) {
	start, err := r.Start()
	if err != nil {
		return Position{}, err
	}
	if r.PerekEnd == nil {
		return start, nil
	}
	end := Position{Sefer: start.Sefer, Perek: *r.PerekEnd}
	if r.PasukEnd != nil {
		end.Pasuk = *r.PasukEnd
	} else if r.PasukStart != nil {
		// "3:15-20": the parser binds 20 as a perek, but with a pasuk
		// start and no end pasuk it reads as a pasuk in the same perek.
		end = Position{Sefer: start.Sefer, Perek: start.Perek, Pasuk: *r.PerekEnd}
	}
	return end, nil
}

// String renders the range back in canonical form.
func (r *Range) String() string {
	var b strings.Builder
	b.WriteString(r.Sefer)
	if r.PerekStart != nil {
		fmt.Fprintf(&b, " %d", *r.PerekStart)
		if r.PasukStart != nil {
			fmt.Fprintf(&b, ":%d", *r.PasukStart)
		}
		if r.PerekEnd != nil {
			fmt.Fprintf(&b, "-%d", *r.PerekEnd)
			if r.PasukEnd != nil {
				fmt.Fprintf(&b, ":%d", *r.PasukEnd)
			}
		}
	}
	return b.String()
}
