package templates

import "github.com/csg33k/alta-clientes/internal/domain"

type field struct {
	Name     string
	Label    string
	Type     string
	Required bool
}

type section struct {
	Title  string
	Fields []field
}

func text(name, label string) field  { return field{Name: name, Label: label, Type: "text"} }
func email(name, label string) field { return field{Name: name, Label: label, Type: "email"} }
func tel(name, label string) field   { return field{Name: name, Label: label, Type: "tel"} }

var clientSections = []section{
	{"Datos generales", []field{
		{Name: "nombre", Label: "Razón social", Type: "text", Required: true},
		text("nif", "NIF"),
		tel("telefono_general", "Teléfono"),
		email("email_general", "Email"),
		text("web", "Web"),
		text("direccion", "Dirección"),
		text("cp", "Código postal"),
		text("poblacion", "Población"),
		text("provincia", "Provincia"),
		text("forma_pago", "Forma de pago"),
		email("correo_comercial", "Email del comercial"),
	}},
	{"Compras", []field{
		text("compras_nombre", "Nombre"),
		tel("compras_telefono", "Teléfono"),
		email("compras_email", "Email"),
	}},
	{"Contabilidad", []field{
		text("contabilidad_nombre", "Nombre"),
		tel("contabilidad_telefono", "Teléfono"),
		email("contabilidad_email", "Email"),
	}},
	{"Facturación", []field{
		text("facturacion_nombre", "Nombre"),
		tel("facturacion_telefono", "Teléfono"),
		email("facturacion_email", "Email"),
	}},
	{"Descarga", []field{
		text("descarga_nombre", "Nombre"),
		tel("descarga_telefono", "Teléfono"),
		email("descarga_email", "Email"),
	}},
	{"Contactos", []field{
		text("contacto_documentacion", "Envío de documentación"),
		text("contacto_devoluciones", "Devoluciones"),
	}},
	{"Domiciliación SEPA", []field{
		text("sepa_nombre_banco", "Banco"),
		text("sepa_domicilio_banco", "Domicilio del banco"),
		text("sepa_cp", "Código postal"),
		text("sepa_poblacion", "Población"),
		text("sepa_provincia", "Provincia"),
		text("iban_completo", "IBAN"),
	}},
}

// plantLabels follows domain.PlantFields.
var plantLabels = [12]string{
	"Nombre", "Dirección", "Código postal", "Población", "Provincia", "Teléfono",
	"Email", "Horario de descarga", "Observaciones", "Persona de contacto",
	"Teléfono de contacto", "Email de contacto",
}

type plantInput struct {
	Name  string
	Label string
	Type  string
	Value string
}

type plantSlot struct {
	Slot   int
	Fields []plantInput
}

func plantSlots(values domain.Record) []plantSlot {
	slots := make([]plantSlot, domain.MaxPlantSlots)
	for i := range slots {
		n := i + 1
		slots[i].Slot = n
		for j, f := range domain.PlantFields {
			typ := "text"
			switch f {
			case "email", "contacto_email":
				typ = "email"
			case "telefono", "contacto_telefono":
				typ = "tel"
			}
			key := domain.PlantKey(f, n)
			slots[i].Fields = append(slots[i].Fields, plantInput{
				Name: key, Label: plantLabels[j], Type: typ, Value: values.Get(key),
			})
		}
	}
	return slots
}
