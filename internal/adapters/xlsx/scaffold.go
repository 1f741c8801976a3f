package xlsx

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/csg33k/alta-clientes/internal/domain"
)

// WriteBlankTemplates creates minimal client and plants templates in dir that
// satisfy the layout: the expected sheet names, a label left of every client
// cell and a header row above the first plant row. Existing files are left
// alone unless overwrite is set. It returns the paths written.
func WriteBlankTemplates(dir string, l *Layout, overwrite bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var written []string

	clientPath := filepath.Join(dir, l.Client.Template)
	if overwrite || !exists(clientPath) {
		if err := writeBlank(clientPath, l.Client.Sheet, func(f *excelize.File) error {
			for _, c := range l.Client.Cells {
				col, row, err := excelize.CellNameToCoordinates(c.Cell)
				if err != nil {
					return err
				}
				if col < 2 {
					continue
				}
				label, _ := excelize.CoordinatesToCellName(col-1, row)
				if err := f.SetCellStr(l.Client.Sheet, label, c.Field); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return written, err
		}
		written = append(written, clientPath)
	}

	plantsPath := filepath.Join(dir, l.Plants.Template)
	if overwrite || !exists(plantsPath) {
		if err := writeBlank(plantsPath, l.Plants.Sheet, func(f *excelize.File) error {
			for i, col := range l.Plants.Columns {
				cell, err := excelize.JoinCellName(col, l.Plants.RowOffset)
				if err != nil {
					return err
				}
				if err := f.SetCellStr(l.Plants.Sheet, cell, domain.PlantFields[i]); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return written, err
		}
		written = append(written, plantsPath)
	}
	return written, nil
}

func writeBlank(path, sheet string, fill func(*excelize.File) error) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := fill(f); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return f.SaveAs(path)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
