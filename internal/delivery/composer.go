// Package delivery turns the generated documents of a submission into
// outgoing messages and sends them.
package delivery

import (
	"bytes"
	_ "embed"
	"html/template"
	"strings"

	"github.com/google/uuid"

	"github.com/csg33k/alta-clientes/internal/domain"
)

// DefaultSplitThreshold is the estimated encoded payload above which the two
// documents travel in separate messages.
const DefaultSplitThreshold int64 = 18 << 20

const (
	textCombined = "Adjuntamos la documentación del alta (Cliente y Plantas)."
	textClient   = "Adjuntamos la documentación del alta: datos del cliente (envío 1 de 2)."
	textPlants   = "Adjuntamos la documentación del alta: plantas del cliente (envío 2 de 2)."
)

//go:embed body.html
var bodyHTML string

var bodyTmpl = template.Must(template.New("body").Parse(bodyHTML))

type sector struct {
	Name       string
	Heading    string
	Subsectors []string
}

var risks = []string{"0", "500", "1000", "1500", "2000", "2500", "3000", "3500", "4000", "4500", "5000", "20000"}

var sectors = []sector{
	{"Agricultura", "Agricultura", []string{"(AG)Agricultura"}},
	{"Aguas", "Aguas", []string{"(A)Industrial", "(A)Potable", "(A)Residual"}},
	{"Alimentación", "Alimentación", []string{
		"(AL)Aceituna", "(AL)Aditivos, aromas, azucares y salsas", "(AL)Bebidas", "(AL)Cárnicas",
		"(AL)Chocolate, café y confiteria", "(AL)Conserva - procesado frutas, hortalizas y cereales",
		"(AL)Grasas animales y vegetales", "(AL)Lácteos", "(AL)Panadería,pasta,harina,galletas, y pasteleria",
		"(AL)Pescado", "(AL)Vino",
	}},
	{"Distribuidor", "Distribuidor", []string{
		"(D)Agricultura", "(D)Aguas", "(D)Alimentación", "(D)Ganadería", "(D)Industrial", "(D)Piscinas",
	}},
	{"Ganadería", "Ganadería", []string{"(G)Explotaciones Ganaderas", "(G)Fabricación Alimentos FEED"}},
	{"Industrial", "Industrial", []string{
		"(I)Biodiésel", "(I)Cemento,yeso y hormigón", "(I)Comercio", "(I)Construcción",
		"(I)Detergencia y Cosmética", "(I)Energía", "(I)Energía Renovable", "(I)Farmacia",
		"(I)Fertilizantes y agroquímicos", "(I)Madera", "(I)Metalurgia", "(I)Minerales",
		"(I)Papel y cartón", "(I)Petróleo y gas", "(I)Pinturas,barnices,resinas,masillas,tintas",
		"(I)Plástico", "(I)Química básica", "(I)Química fina / formulados", "(I)Residuos",
		"(I)Textil y curtidos", "(I)Transportes", "(I)Vidrio y Cerámica",
	}},
	{"Piscinas", "Piscinas", []string{"(P)Privada", "(P)Pública"}},
	{"Sector0", "Sector 0", []string{"(S)Sector 0"}},
}

// Composer builds the messages of a submission. Its fields are read-only
// after construction.
type Composer struct {
	Treasury       string
	Admin          string
	SplitThreshold int64
}

// NewComposer returns a Composer; a non-positive threshold means
// DefaultSplitThreshold.
func NewComposer(treasury, admin string, threshold int64) *Composer {
	if threshold <= 0 {
		threshold = DefaultSplitThreshold
	}
	return &Composer{Treasury: treasury, Admin: admin, SplitThreshold: threshold}
}

// Recipients returns the treasury address, then the commercial contact when
// it looks like an address, then the admin copy when configured. Treasury
// appears exactly once; other duplicates are left to the mail server.
func (c *Composer) Recipients(commercial string) []string {
	to := []string{c.Treasury}
	if commercial = strings.TrimSpace(commercial); c.extra(commercial) {
		to = append(to, commercial)
	}
	if c.extra(c.Admin) {
		to = append(to, c.Admin)
	}
	return to
}

func (c *Composer) extra(addr string) bool {
	return strings.Contains(addr, "@") && !strings.EqualFold(addr, c.Treasury)
}

// EstimateEncodedSize approximates the base64 size of the attachments.
func EstimateEncodedSize(docs ...domain.Document) int64 {
	var n int64
	for _, d := range docs {
		n += int64(d.Size())
	}
	return n * 4 / 3
}

// Compose returns one message with both documents when their estimated
// encoded size is within the threshold, otherwise two messages with one
// document each: the client document first.
func (c *Composer) Compose(client, plants domain.Document, recipients []string, clientName string) ([]domain.Message, error) {
	if clientName == "" {
		clientName = domain.DefaultClientName
	}
	html, err := Body(clientName)
	if err != nil {
		return nil, err
	}
	subject := "Alta de cliente: " + clientName + " — Documentación"

	if EstimateEncodedSize(client, plants) <= c.SplitThreshold {
		return []domain.Message{{
			ID:          uuid.NewString(),
			Part:        1,
			Parts:       1,
			To:          recipients,
			Subject:     subject,
			Text:        textCombined,
			HTML:        html,
			Attachments: []domain.Document{client, plants},
		}}, nil
	}
	return []domain.Message{
		{
			ID:          uuid.NewString(),
			Part:        1,
			Parts:       2,
			To:          recipients,
			Subject:     subject + " (1/2)",
			Text:        textClient,
			HTML:        html,
			Attachments: []domain.Document{client},
		},
		{
			ID:          uuid.NewString(),
			Part:        2,
			Parts:       2,
			To:          recipients,
			Subject:     subject + " (2/2)",
			Text:        textPlants,
			HTML:        html,
			Attachments: []domain.Document{plants},
		},
	}, nil
}

// Body renders the HTML body with the risk, sector and subsector tables.
func Body(clientName string) (string, error) {
	var buf bytes.Buffer
	err := bodyTmpl.Execute(&buf, struct {
		ClientName string
		Risks      []string
		Sectors    []sector
	}{clientName, risks, sectors})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
