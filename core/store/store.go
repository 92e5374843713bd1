// Package store loads sefer documents from the static corpus assets.
//
// The corpus is five JSON assets, one per sefer, addressed by numeric
// identifier. A Store is the slowest tier of the loader: it is only
// consulted when both cache tiers miss. Load failures are not retried
// here; the caller decides whether the failure is user-visible.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/torahstudy/limud/core/errors"
	"github.com/torahstudy/limud/core/torah"
)

// AssetNames maps sefer identifiers to their canonical asset file names.
var AssetNames = map[int]string{
	torah.Bereishit: "bereishit.json",
	torah.Shemot:    "shemot.json",
	torah.Vayikra:   "vayikra.json",
	torah.Bamidbar:  "bamidbar.json",
	torah.Devarim:   "devarim.json",
}

// Store loads a sefer document by its identifier.
type Store interface {
	// LoadSefer loads and parses the asset for the given sefer.
	// It returns a ParseError for malformed assets and an IOError for
	// read failures. There is no retry; a failed load is surfaced as-is.
	LoadSefer(ctx context.Context, seferID int) (*torah.Sefer, error)
}

// assetName resolves a sefer identifier to its asset file name.
func assetName(seferID int) (string, error) {
	name, ok := AssetNames[seferID]
	if !ok {
		return "", errors.NewValidation("sefer_id", fmt.Sprintf("unknown sefer %d", seferID))
	}
	return name, nil
}

// decodeSefer parses and validates a sefer document.
func decodeSefer(data []byte, seferID int, src string) (*torah.Sefer, error) {
	var sefer torah.Sefer
	if err := json.Unmarshal(data, &sefer); err != nil {
		return nil, &errors.ParseError{Format: "JSON", Path: src, Message: err.Error(), Err: err}
	}
	if err := sefer.Validate(); err != nil {
		return nil, &errors.ParseError{Format: "sefer document", Path: src, Message: err.Error(), Err: err}
	}
	if sefer.SeferID != seferID {
		return nil, &errors.ParseError{
			Format:  "sefer document",
			Path:    src,
			Message: fmt.Sprintf("asset contains sefer %d, expected %d", sefer.SeferID, seferID),
		}
	}
	return &sefer, nil
}

// FSStore loads sefer assets from a directory on disk.
type FSStore struct {
	dir string
}

// NewFSStore creates a store reading assets from dir.
func NewFSStore(dir string) *FSStore {
	return &FSStore{dir: dir}
}

// LoadSefer reads and parses the asset file for the given sefer.
func (s *FSStore) LoadSefer(ctx context.Context, seferID int) (*torah.Sefer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := assetName(seferID)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: "sefer asset", ID: name, Err: err}
		}
		return nil, errors.NewIO("read", path, err)
	}
	return decodeSefer(data, seferID, path)
}

// HTTPStore loads sefer assets from a static asset base URL.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPStore creates a store fetching assets from baseURL.
// If client is nil, http.DefaultClient is used.
func NewHTTPStore(baseURL string, client *http.Client) *HTTPStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPStore{baseURL: baseURL, client: client}
}

// LoadSefer fetches and parses the asset for the given sefer.
func (s *HTTPStore) LoadSefer(ctx context.Context, seferID int) (*torah.Sefer, error) {
	name, err := assetName(seferID)
	if err != nil {
		return nil, err
	}
	url := s.baseURL + "/" + name

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewIO("request", url, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.NewIO("fetch", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &errors.NotFoundError{Resource: "sefer asset", ID: name}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewIO("fetch", url, fmt.Errorf("unexpected status %s", resp.Status))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewIO("read body", url, err)
	}
	return decodeSefer(data, seferID, url)
}
