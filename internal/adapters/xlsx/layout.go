package xlsx

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/csg33k/alta-clientes/internal/domain"
)

//go:embed layout.yaml
var defaultLayout []byte

// Layout maps record fields to cells of the two templates.
type Layout struct {
	Client ClientLayout `yaml:"client"`
	Plants PlantsLayout `yaml:"plants"`
}

type ClientLayout struct {
	Template  string          `yaml:"template"`
	Sheet     string          `yaml:"sheet"`
	Signature SignatureLayout `yaml:"signature"`
	Cells     []CellMapping   `yaml:"cells"`
}

type SignatureLayout struct {
	Cell   string `yaml:"cell"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type CellMapping struct {
	Field string `yaml:"field"`
	Cell  string `yaml:"cell"`
}

type PlantsLayout struct {
	Template  string   `yaml:"template"`
	Sheet     string   `yaml:"sheet"`
	RowOffset int      `yaml:"row_offset"`
	Columns   []string `yaml:"columns"`
}

// LoadLayout reads the layout at path, or the built-in one when path is empty.
func LoadLayout(path string) (*Layout, error) {
	data := defaultLayout
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read layout: %w", err)
		}
		data = b
	}
	return ParseLayout(data)
}

// DefaultLayout returns the built-in layout.
func DefaultLayout() *Layout {
	l, err := ParseLayout(defaultLayout)
	if err != nil {
		panic(err)
	}
	return l
}

// ParseLayout decodes and validates a YAML layout.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	if err := l.validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	return &l, nil
}

func (l *Layout) validate() error {
	if l.Client.Template == "" || l.Client.Sheet == "" {
		return fmt.Errorf("client template and sheet are required")
	}
	if l.Plants.Template == "" || l.Plants.Sheet == "" {
		return fmt.Errorf("plants template and sheet are required")
	}
	for _, c := range l.Client.Cells {
		if c.Field == "" {
			return fmt.Errorf("cell %s has no field", c.Cell)
		}
		if _, _, err := excelize.CellNameToCoordinates(c.Cell); err != nil {
			return fmt.Errorf("field %s: %w", c.Field, err)
		}
	}
	if sig := l.Client.Signature; sig.Cell != "" {
		if _, _, err := excelize.CellNameToCoordinates(sig.Cell); err != nil {
			return fmt.Errorf("signature: %w", err)
		}
		if sig.Width <= 0 || sig.Height <= 0 {
			return fmt.Errorf("signature size must be positive")
		}
	}
	if len(l.Plants.Columns) != len(domain.PlantFields) {
		return fmt.Errorf("plants: want %d columns, got %d", len(domain.PlantFields), len(l.Plants.Columns))
	}
	for _, col := range l.Plants.Columns {
		if _, err := excelize.ColumnNameToNumber(col); err != nil {
			return fmt.Errorf("plants column %q: %w", col, err)
		}
	}
	if l.Plants.RowOffset < 1 {
		return fmt.Errorf("plants row_offset must be at least 1")
	}
	return nil
}
