// Package xlsx fills the client and plants spreadsheet templates. Templates
// are opened fresh for every submission and the result is returned in
// memory; nothing is written back to disk.
package xlsx

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/csg33k/alta-clientes/internal/domain"
)

type Filler struct {
	dir    string
	layout *Layout
}

// New returns a Filler reading templates from dir. A nil layout means the
// built-in one.
func New(dir string, layout *Layout) *Filler {
	if layout == nil {
		layout = DefaultLayout()
	}
	return &Filler{dir: dir, layout: layout}
}

// Layout returns the cell layout in use.
func (x *Filler) Layout() *Layout { return x.layout }

// FillClient writes the client record into the client template. Satisfies
// ports.SpreadsheetFiller.
func (x *Filler) FillClient(ctx context.Context, r domain.Record, signature []byte) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	cl := x.layout.Client
	f, err := x.open(cl.Template, cl.Sheet)
	if err != nil {
		return domain.Document{}, err
	}
	defer f.Close()

	for _, c := range cl.Cells {
		if err := f.SetCellStr(cl.Sheet, c.Cell, r.Get(c.Field)); err != nil {
			return domain.Document{}, fmt.Errorf("%w: write %s: %w", domain.ErrTemplate, c.Cell, err)
		}
	}
	if len(signature) > 0 && cl.Signature.Cell != "" {
		if err := addSignature(f, cl.Sheet, cl.Signature, signature); err != nil {
			// A bad canvas image never blocks the submission.
			slog.Warn("signature not embedded", "err", err)
		}
	}
	return x.document(f, domain.ClientDocument, "Copia Alta de Cliente - "+r.ClientName()+".xlsx")
}

// FillPlants writes each entry into row RowOffset+Slot of the plants
// template. Satisfies ports.SpreadsheetFiller.
func (x *Filler) FillPlants(ctx context.Context, clientName string, entries []domain.PlantEntry) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	pl := x.layout.Plants
	f, err := x.open(pl.Template, pl.Sheet)
	if err != nil {
		return domain.Document{}, err
	}
	defer f.Close()

	for _, e := range entries {
		if e.Slot < 1 || e.Slot > domain.MaxPlantSlots {
			return domain.Document{}, fmt.Errorf("%w: plant slot %d out of range", domain.ErrTemplate, e.Slot)
		}
		row := pl.RowOffset + e.Slot
		for i, col := range pl.Columns {
			cell, err := excelize.JoinCellName(col, row)
			if err != nil {
				return domain.Document{}, fmt.Errorf("%w: %w", domain.ErrTemplate, err)
			}
			if err := f.SetCellStr(pl.Sheet, cell, e.Values[i]); err != nil {
				return domain.Document{}, fmt.Errorf("%w: write %s: %w", domain.ErrTemplate, cell, err)
			}
		}
	}
	if clientName == "" {
		clientName = domain.DefaultClientName
	}
	return x.document(f, domain.PlantsDocument, "Copia Alta de Plantas - "+clientName+".xlsx")
}

func (x *Filler) open(name, sheet string) (*excelize.File, error) {
	path := filepath.Join(x.dir, name)
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrTemplate, path, err)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %s has no sheet %q", domain.ErrTemplate, path, sheet)
	}
	return f, nil
}

func (x *Filler) document(f *excelize.File, kind domain.DocumentKind, filename string) (domain.Document, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: serialize %s: %w", domain.ErrTemplate, kind, err)
	}
	return domain.Document{
		Kind:     kind,
		Filename: filename,
		MIMEType: domain.XLSXMIMEType,
		Content:  buf.Bytes(),
	}, nil
}

// addSignature anchors img at the layout cell, scaled to the layout size.
func addSignature(f *excelize.File, sheet string, sig SignatureLayout, img []byte) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("signature has no pixels")
	}
	ext := ".png"
	if format == "jpeg" {
		ext = ".jpg"
	}
	return f.AddPictureFromBytes(sheet, sig.Cell, &excelize.Picture{
		Extension: ext,
		File:      img,
		Format: &excelize.GraphicOptions{
			ScaleX:      float64(sig.Width) / float64(cfg.Width),
			ScaleY:      float64(sig.Height) / float64(cfg.Height),
			Positioning: "oneCell",
			AltText:     "Firma del cliente",
		},
	})
}

// DecodeSignature extracts the image bytes from a canvas data URL such as
// "data:image/png;base64,iVBOR...". It returns nil when the value is empty or
// cannot be decoded.
func DecodeSignature(dataURL string) []byte {
	_, payload, ok := strings.Cut(dataURL, ",")
	if !ok || payload == "" {
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil
	}
	return b
}
