package xlsx

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/csg33k/alta-clientes/internal/domain"
)

func newFiller(t *testing.T) *Filler {
	t.Helper()
	dir := t.TempDir()
	l := DefaultLayout()
	_, err := WriteBlankTemplates(dir, l, false)
	require.NoError(t, err)
	return New(dir, l)
}

func reopen(t *testing.T, doc domain.Document) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(doc.Content))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func signaturePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout()
	assert.Equal(t, "FICHA CLIENTE", l.Client.Sheet)
	assert.Equal(t, "Plantas", l.Plants.Sheet)
	assert.Len(t, l.Client.Cells, 30)
	assert.Equal(t, 3, l.Plants.RowOffset)
	assert.Equal(t, "B49", l.Client.Signature.Cell)
}

func TestParseLayout_Rejects(t *testing.T) {
	_, err := ParseLayout([]byte("client: {template: a.xlsx, sheet: S}\nplants: {template: b.xlsx, sheet: P, row_offset: 3, columns: [B, C]}"))
	assert.ErrorContains(t, err, "want 12 columns")

	_, err = ParseLayout([]byte("client: {template: a.xlsx, sheet: S, cells: [{field: x, cell: '4B'}]}"))
	assert.Error(t, err)
}

func TestFillClient_RoundTrip(t *testing.T) {
	x := newFiller(t)
	r := domain.Record{}
	for _, c := range x.Layout().Client.Cells {
		r[c.Field] = "valor " + c.Field
	}
	r["nombre"] = "Acme"
	r["iban_completo"] = "ES91 2100 0418 4502 0005 1332"

	doc, err := x.FillClient(context.Background(), r, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ClientDocument, doc.Kind)
	assert.Equal(t, "Copia Alta de Cliente - Acme.xlsx", doc.Filename)
	assert.Equal(t, domain.XLSXMIMEType, doc.MIMEType)

	f := reopen(t, doc)
	for _, c := range x.Layout().Client.Cells {
		got, err := f.GetCellValue("FICHA CLIENTE", c.Cell)
		require.NoError(t, err)
		assert.Equal(t, r[c.Field], got, "cell %s (%s)", c.Cell, c.Field)
	}
}

func TestFillClient_MissingFieldsEmpty(t *testing.T) {
	x := newFiller(t)
	doc, err := x.FillClient(context.Background(), domain.Record{"nombre": "Acme"}, nil)
	require.NoError(t, err)

	f := reopen(t, doc)
	got, err := f.GetCellValue("FICHA CLIENTE", "B5")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFillClient_EmbedsSignature(t *testing.T) {
	x := newFiller(t)
	sig := signaturePNG(t, 400, 120)

	doc, err := x.FillClient(context.Background(), domain.Record{"nombre": "Acme"}, sig)
	require.NoError(t, err)

	f := reopen(t, doc)
	pics, err := f.GetPictures("FICHA CLIENTE", "B49")
	require.NoError(t, err)
	require.Len(t, pics, 1)
	assert.Equal(t, ".png", pics[0].Extension)
}

func TestFillClient_BadSignatureIgnored(t *testing.T) {
	x := newFiller(t)
	doc, err := x.FillClient(context.Background(), domain.Record{"nombre": "Acme"}, []byte("not an image"))
	require.NoError(t, err)

	f := reopen(t, doc)
	pics, err := f.GetPictures("FICHA CLIENTE", "B49")
	require.NoError(t, err)
	assert.Empty(t, pics)
}

func TestFillPlants_SingleSlotRow(t *testing.T) {
	for _, slot := range []int{1, 5, 10} {
		x := newFiller(t)
		e := domain.PlantEntry{Slot: slot}
		for i, f := range domain.PlantFields {
			e.Values[i] = f
		}

		doc, err := x.FillPlants(context.Background(), "Acme", []domain.PlantEntry{e})
		require.NoError(t, err)
		assert.Equal(t, "Copia Alta de Plantas - Acme.xlsx", doc.Filename)

		f := reopen(t, doc)
		for s := 1; s <= domain.MaxPlantSlots; s++ {
			row := 3 + s
			for i, col := range x.Layout().Plants.Columns {
				cell, _ := excelize.JoinCellName(col, row)
				got, err := f.GetCellValue("Plantas", cell)
				require.NoError(t, err)
				if s == slot {
					assert.Equal(t, domain.PlantFields[i], got, "slot %d cell %s", slot, cell)
				} else {
					assert.Empty(t, got, "slot %d: unexpected value in %s", slot, cell)
				}
			}
		}
	}
}

func TestFillPlants_RowsFollowSlots(t *testing.T) {
	x := newFiller(t)
	entries := []domain.PlantEntry{
		{Slot: 1, Values: [12]string{"Norte", "Calle A"}},
		{Slot: 3, Values: [12]string{"Sur", "Calle B"}},
	}
	doc, err := x.FillPlants(context.Background(), "Acme", entries)
	require.NoError(t, err)

	f := reopen(t, doc)
	rows, err := f.GetRows("Plantas")
	require.NoError(t, err)

	var dataRows []int
	for i, row := range rows {
		if i+1 <= 3 {
			continue
		}
		for _, v := range row {
			if v != "" {
				dataRows = append(dataRows, i+1)
				break
			}
		}
	}
	assert.Equal(t, []int{4, 6}, dataRows)

	v, _ := f.GetCellValue("Plantas", "C6")
	assert.Equal(t, "Calle B", v)
}

func TestFill_TemplateErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		x := New(t.TempDir(), nil)
		_, err := x.FillClient(context.Background(), domain.Record{}, nil)
		assert.ErrorIs(t, err, domain.ErrTemplate)
		_, err = x.FillPlants(context.Background(), "Acme", nil)
		assert.ErrorIs(t, err, domain.ErrTemplate)
	})

	t.Run("missing sheet", func(t *testing.T) {
		dir := t.TempDir()
		l := DefaultLayout()
		f := excelize.NewFile()
		require.NoError(t, f.SaveAs(filepath.Join(dir, l.Client.Template)))
		require.NoError(t, f.Close())

		_, err := New(dir, l).FillClient(context.Background(), domain.Record{}, nil)
		assert.ErrorIs(t, err, domain.ErrTemplate)
		assert.ErrorContains(t, err, "FICHA CLIENTE")
	})

	t.Run("malformed file", func(t *testing.T) {
		dir := t.TempDir()
		l := DefaultLayout()
		require.NoError(t, os.WriteFile(filepath.Join(dir, l.Plants.Template), []byte("nope"), 0o644))

		_, err := New(dir, l).FillPlants(context.Background(), "Acme", nil)
		assert.ErrorIs(t, err, domain.ErrTemplate)
	})

	t.Run("slot out of range", func(t *testing.T) {
		x := newFiller(t)
		for _, slot := range []int{0, domain.MaxPlantSlots + 1} {
			_, err := x.FillPlants(context.Background(), "Acme", []domain.PlantEntry{{Slot: slot, Values: [12]string{"Planta"}}})
			assert.ErrorIs(t, err, domain.ErrTemplate, "slot %d", slot)
		}
	})
}

func TestWriteBlankTemplates_KeepsExisting(t *testing.T) {
	dir := t.TempDir()
	l := DefaultLayout()
	written, err := WriteBlankTemplates(dir, l, false)
	require.NoError(t, err)
	assert.Len(t, written, 2)

	written, err = WriteBlankTemplates(dir, l, false)
	require.NoError(t, err)
	assert.Empty(t, written)
}

func TestDecodeSignature(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G'}
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	assert.Equal(t, raw, DecodeSignature(url))
	assert.Nil(t, DecodeSignature(""))
	assert.Nil(t, DecodeSignature("no-comma"))
	assert.Nil(t, DecodeSignature("data:image/png;base64,***"))
}
