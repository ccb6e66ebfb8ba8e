package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sync"
)

//go:embed content/symptoms.yaml
var defaultContent []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the built-in catalog. It is built on first use and shared
// by every caller afterwards.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load(bytes.NewReader(defaultContent), DefaultLogic())
		if defaultErr != nil {
			defaultErr = fmt.Errorf("catalog: build default: %w", defaultErr)
		}
	})
	return defaultCatalog, defaultErr
}

// LoadWithDefaultLogic reads alternative content, e.g. a translation, and
// pairs it with the built-in evaluation logic.
func LoadWithDefaultLogic(r io.Reader) (*Catalog, error) {
	return Load(r, DefaultLogic())
}
