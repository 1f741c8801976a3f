package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plantRecord(slots ...int) Record {
	r := Record{"nombre": "Acme"}
	for _, s := range slots {
		for _, f := range PlantFields {
			r[PlantKey(f, s)] = f + "-" + string(rune('0'+s%10))
		}
	}
	return r
}

func TestExtractPlants_NoneFilled(t *testing.T) {
	r := Record{"nombre": "Acme", "planta_direccion_1": "Calle Mayor 1"}
	assert.Empty(t, ExtractPlants(r, MaxPlantSlots))
}

func TestExtractPlants_SkipsEmptySlotsInOrder(t *testing.T) {
	r := plantRecord(3, 1, 10)
	r[PlantKey("nombre", 5)] = ""
	r[PlantKey("direccion", 5)] = "ignored"

	got := ExtractPlants(r, MaxPlantSlots)
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Slot)
	assert.Equal(t, 3, got[1].Slot)
	assert.Equal(t, 10, got[2].Slot)
	assert.Equal(t, "nombre-3", got[1].Name())
	assert.Equal(t, "contacto_email-3", got[1].Values[11])
}

func TestExtractPlants_MissingFieldsAreEmpty(t *testing.T) {
	r := Record{PlantKey("nombre", 2): "Planta Norte"}
	got := ExtractPlants(r, MaxPlantSlots)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Slot)
	for i := 1; i < len(got[0].Values); i++ {
		assert.Empty(t, got[0].Values[i], "field %s", PlantFields[i])
	}
}

func TestExtractPlants_NeverBeyondTen(t *testing.T) {
	r := plantRecord(1)
	r[PlantKey("nombre", 11)] = "Extra"

	assert.Len(t, ExtractPlants(r, 11), 1)
	assert.Len(t, ExtractPlants(r, 0), 1)
}

func TestExtractPlants_MaxSlotsLimits(t *testing.T) {
	r := plantRecord(1, 4)
	got := ExtractPlants(r, 3)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Slot)
}

func TestMerge_SecondPageWins(t *testing.T) {
	page1 := Record{"nombre": "Acme", "nif": "B123"}
	page2 := Record{"nombre": "Acme SL", "planta_nombre_1": "Norte"}

	got := Merge(page1, page2)
	assert.Equal(t, "Acme SL", got["nombre"])
	assert.Equal(t, "B123", got["nif"])
	assert.Equal(t, "Norte", got["planta_nombre_1"])
	assert.Equal(t, "Acme", page1["nombre"], "inputs are not modified")
}

func TestRecord_ClientName(t *testing.T) {
	assert.Equal(t, "Acme", Record{"nombre": "  Acme "}.ClientName())
	assert.Equal(t, DefaultClientName, Record{}.ClientName())
}

func TestPartialDeliveryError(t *testing.T) {
	err := &PartialDeliveryError{
		Sent:   []string{"1/2"},
		Failed: []PartFailure{{Part: "2/2", Err: ErrTransport}},
	}
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "envío 2/2 fallido")
	assert.Contains(t, err.Error(), "enviados: 1/2")
}
