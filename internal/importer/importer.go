// Package importer converts Tanach XML source files into the JSON sefer
// assets served by the document store.
//
// The XML layout mirrors the corpus tree: sefer > parsha > perek >
// pasuk > content > question > perush. Import is an offline asset
// pipeline step; the reading application itself only ever consumes the
// generated JSON.
package importer

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/torahstudy/limud/core/errors"
	"github.com/torahstudy/limud/core/store"
	"github.com/torahstudy/limud/core/torah"
)

// Compiled selectors for the corpus tree.
var (
	seferExpr    = xpath.MustCompile("//sefer")
	parshaExpr   = xpath.MustCompile("./parsha")
	perekExpr    = xpath.MustCompile("./perek")
	pasukExpr    = xpath.MustCompile("./pasuk")
	contentExpr  = xpath.MustCompile("./content")
	questionExpr = xpath.MustCompile("./question")
	perushExpr   = xpath.MustCompile("./perush")
	textExpr     = xpath.MustCompile("./text")
)

// ImportSefer parses one Tanach XML document into a sefer.
func ImportSefer(r io.Reader) (*torah.Sefer, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, errors.NewParse("XML", "", err.Error())
	}
	node := xmlquery.QuerySelector(doc, seferExpr)
	if node == nil {
		return nil, errors.NewParse("XML", "", "no <sefer> element")
	}

	sefer := &torah.Sefer{
		SeferID:     intAttr(node, "id"),
		SeferName:   node.SelectAttr("name"),
		EnglishName: node.SelectAttr("english"),
	}
	for _, pn := range xmlquery.QuerySelectorAll(node, parshaExpr) {
		parsha := torah.Parsha{
			ParshaID:   intAttr(pn, "id"),
			ParshaName: pn.SelectAttr("name"),
		}
		for _, kn := range xmlquery.QuerySelectorAll(pn, perekExpr) {
			perek := torah.Perek{PerekNum: intAttr(kn, "num")}
			for _, vn := range xmlquery.QuerySelectorAll(kn, pasukExpr) {
				perek.Pesukim = append(perek.Pesukim, importPasuk(vn))
			}
			parsha.Perakim = append(parsha.Perakim, perek)
		}
		sefer.Parshiot = append(sefer.Parshiot, parsha)
	}

	if err := sefer.Validate(); err != nil {
		return nil, errors.NewParse("sefer document", "", err.Error())
	}
	return sefer, nil
}

func importPasuk(node *xmlquery.Node) torah.Pasuk {
	pasuk := torah.Pasuk{
		ID:       intAttr(node, "id"),
		PasukNum: intAttr(node, "num"),
		Text:     nodeText(node),
	}
	for _, cn := range xmlquery.QuerySelectorAll(node, contentExpr) {
		content := torah.Content{
			ID:    intAttr(cn, "id"),
			Title: cn.SelectAttr("title"),
		}
		for _, qn := range xmlquery.QuerySelectorAll(cn, questionExpr) {
			question := torah.Question{
				ID:   intAttr(qn, "id"),
				Text: qn.SelectAttr("text"),
			}
			for _, prn := range xmlquery.QuerySelectorAll(qn, perushExpr) {
				question.Perushim = append(question.Perushim, torah.Perush{
					ID:       intAttr(prn, "id"),
					Mefaresh: prn.SelectAttr("mefaresh"),
					Text:     strings.TrimSpace(prn.InnerText()),
				})
			}
			content.Questions = append(content.Questions, question)
		}
		pasuk.Content = append(pasuk.Content, content)
	}
	return pasuk
}

// nodeText extracts pasuk text: either a nested <text> element or the
// element's own direct text, trimmed.
func nodeText(node *xmlquery.Node) string {
	if tn := xmlquery.QuerySelector(node, textExpr); tn != nil {
		return strings.TrimSpace(tn.InnerText())
	}
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.TextNode {
			b.WriteString(child.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

func intAttr(node *xmlquery.Node, name string) int {
	n, _ := strconv.Atoi(node.SelectAttr(name))
	return n
}

// ImportFile parses a Tanach XML file into a sefer.
func ImportFile(path string) (*torah.Sefer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()
	sefer, err := ImportSefer(f)
	if err != nil {
		if pe, ok := err.(*errors.ParseError); ok {
			pe.Path = path
		}
		return nil, err
	}
	return sefer, nil
}

// WriteAsset writes the sefer as a JSON asset into dir under its
// canonical file name, ready for store.NewFSStore(dir).
func WriteAsset(dir string, sefer *torah.Sefer) (string, error) {
	name, ok := store.AssetNames[sefer.SeferID]
	if !ok {
		return "", errors.NewValidation("sefer_id", "no canonical asset name for sefer "+strconv.Itoa(sefer.SeferID))
	}
	data, err := json.MarshalIndent(sefer, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal sefer asset")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.NewIO("write", path, err)
	}
	return path, nil
}
