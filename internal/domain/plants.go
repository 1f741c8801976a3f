package domain

import "fmt"

// MaxPlantSlots is the number of plant field groups the form offers.
const MaxPlantSlots = 10

// PlantFields are the per-plant form field names, in column order. The form
// key for field f of slot i is "planta_<f>_<i>".
var PlantFields = [12]string{
	"nombre",
	"direccion",
	"cp",
	"poblacion",
	"provincia",
	"telefono",
	"email",
	"horario",
	"observaciones",
	"contacto_nombre",
	"contacto_telefono",
	"contacto_email",
}

// PlantEntry is one plant's field group. Values follows PlantFields order.
type PlantEntry struct {
	Slot   int
	Values [12]string
}

// Name returns the plant name; an entry is only present when it is non-empty.
func (p PlantEntry) Name() string { return p.Values[0] }

// PlantKey returns the form key of field in slot.
func PlantKey(field string, slot int) string {
	return fmt.Sprintf("planta_%s_%d", field, slot)
}

// ExtractPlants collects plant entries from slots 1..maxSlots in ascending
// order, skipping slots whose name is empty. Values of maxSlots outside
// 1..MaxPlantSlots mean MaxPlantSlots.
func ExtractPlants(r Record, maxSlots int) []PlantEntry {
	if maxSlots > MaxPlantSlots || maxSlots <= 0 {
		maxSlots = MaxPlantSlots
	}
	var out []PlantEntry
	for slot := 1; slot <= maxSlots; slot++ {
		e := PlantEntry{Slot: slot}
		for i, f := range PlantFields {
			e.Values[i] = r[PlantKey(f, slot)]
		}
		if e.Name() == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}
