// Package catalog loads the static medication reference catalog.
//
// A catalog is a YAML (or JSON) document with a version string and a list of
// medication records. Records are validated on load and are read-only
// afterwards, so a Catalog is safe for concurrent use.
package catalog

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/medication-net-benefit/internal/domain"
)

//go:embed data/medications.yaml
var bundled embed.FS

// BundledPath is the name used for the embedded sample catalog.
const BundledPath = "bundled"

type document struct {
	Version     string                    `yaml:"version"`
	Medications []domain.MedicationRecord `yaml:"medications"`
}

// Catalog is an immutable set of medication records keyed by id.
type Catalog struct {
	version string
	source  string
	records map[string]domain.MedicationRecord
	ids     []string
}

// Load reads a catalog from path. An empty path or BundledPath selects the
// embedded sample catalog.
func Load(path string) (*Catalog, error) {
	if path == "" || path == BundledPath {
		data, err := bundled.ReadFile("data/medications.yaml")
		if err != nil {
			return nil, unreadable(BundledPath, err)
		}
		return parse(data, BundledPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, unreadable(path, err)
	}
	return parse(data, path)
}

// Parse builds a catalog from raw YAML or JSON.
func Parse(data []byte) (*Catalog, error) {
	return parse(data, "inline")
}

// New builds a catalog from records already in memory.
func New(version string, records []domain.MedicationRecord) (*Catalog, error) {
	return build(version, "memory", records)
}

func parse(data []byte, source string) (*Catalog, error) {
	var doc document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, unreadable(source, err)
	}
	return build(doc.Version, source, doc.Medications)
}

func build(version, source string, records []domain.MedicationRecord) (*Catalog, error) {
	if len(records) == 0 {
		return nil, unreadable(source, errors.New("catalog contains no medications"))
	}

	c := &Catalog{
		version: version,
		source:  source,
		records: make(map[string]domain.MedicationRecord, len(records)),
		ids:     make([]string, 0, len(records)),
	}

	var problems []error
	for i, record := range records {
		record.ID = normalizeID(record.ID)
		if err := record.Validate(); err != nil {
			problems = append(problems, fmt.Errorf("medication %d (%s): %w", i, record.ID, err))
			continue
		}
		if _, dup := c.records[record.ID]; dup {
			problems = append(problems, fmt.Errorf("medication %d: %w", i,
				domain.NewValidationError("id", "duplicate medication id", record.ID)))
			continue
		}
		c.records[record.ID] = record
		c.ids = append(c.ids, record.ID)
	}
	if len(problems) > 0 {
		return nil, unreadable(source, errors.Join(problems...))
	}

	sort.Strings(c.ids)
	return c, nil
}

// Get returns the record for id. Lookup ignores case and surrounding space.
func (c *Catalog) Get(id string) (*domain.MedicationRecord, error) {
	record, ok := c.records[normalizeID(id)]
	if !ok {
		return nil, domain.UnknownMedicationError(id)
	}
	return &record, nil
}

// List returns every record sorted by id.
func (c *Catalog) List() []domain.MedicationRecord {
	out := make([]domain.MedicationRecord, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.records[id])
	}
	return out
}

// IDs returns the sorted medication ids.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Len reports the number of medications.
func (c *Catalog) Len() int {
	return len(c.ids)
}

// Version is the catalog's declared version string.
func (c *Catalog) Version() string {
	return c.version
}

// Source is the path the catalog was loaded from.
func (c *Catalog) Source() string {
	return c.source
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func unreadable(source string, err error) error {
	return domain.NewEngineError(domain.CodeCatalogError, "failed to load medication catalog", source,
		fmt.Errorf("%w: %w", domain.ErrCatalogUnreadable, err))
}

var _ domain.MedicationCatalog = (*Catalog)(nil)
