package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csg33k/alta-clientes/internal/domain"
)

func TestReceipt(t *testing.T) {
	out, err := Receipt(ReceiptInput{
		Record: domain.Record{"nombre": "Acme Química", "nif": "B12345678", "poblacion": "Logroño"},
		Plants: []domain.PlantEntry{
			{Slot: 1, Values: [12]string{"Planta Norte", "", "", "Burgos"}},
			{Slot: 3, Values: [12]string{"Planta Sur", "", "", "Sevilla"}},
		},
		Recipients: []string{"tesoreria@dimensasl.com"},
		Messages:   1,
		Queued:     true,
		Date:       time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 500)
}

func TestJoinNonEmpty(t *testing.T) {
	assert.Equal(t, "a, c", joinNonEmpty(", ", "a", " ", "c"))
	assert.Empty(t, joinNonEmpty(", ", "", ""))
}
