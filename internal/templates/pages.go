// Package templates holds the HTML pages of the form. Each page is exposed
// as a templ.Component so handlers render them the same way.
package templates

import (
	"context"
	"embed"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/csg33k/alta-clientes/internal/domain"
)

//go:embed html/*.html
var files embed.FS

var funcs = template.FuncMap{
	"join": strings.Join,
	"datetime": func(t time.Time) string {
		return t.Local().Format("02/01/2006 15:04")
	},
}

var pages = map[string]*template.Template{
	"client":     parse("client.html"),
	"plants":     parse("plants.html"),
	"done":       parse("done.html"),
	"deliveries": parse("deliveries.html"),
}

func parse(page string) *template.Template {
	return template.Must(template.New("").Funcs(funcs).ParseFS(files, "html/layout.html", "html/"+page))
}

func page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return pages[name].ExecuteTemplate(w, "layout", data)
	})
}

// Chrome is shared by every page.
type Chrome struct {
	Flashes []string
	FlashOK bool
	// CSRFField is the hidden token input, empty when CSRF protection is off.
	CSRFField template.HTML
}

type ClientFormPage struct {
	Chrome
	Values domain.Record
}

// ClientForm renders the first step: the client record.
func ClientForm(p ClientFormPage) templ.Component {
	if p.Values == nil {
		p.Values = domain.Record{}
	}
	return page("client", struct {
		ClientFormPage
		Sections []section
	}{p, clientSections})
}

type PlantsFormPage struct {
	Chrome
	ClientName string
	// Values refills the plant inputs after a rejected submit.
	Values domain.Record
}

// PlantsForm renders the second step: MaxPlantSlots plant groups and the
// signature canvas.
func PlantsForm(p PlantsFormPage) templ.Component {
	return page("plants", struct {
		PlantsFormPage
		Slots []plantSlot
	}{p, plantSlots(p.Values)})
}

type DonePage struct {
	Chrome
	ClientName  string
	Recipients  []string
	Queued      bool
	ReceiptURI  template.URL
	ReceiptName string
}

// Done renders the confirmation page.
func Done(p DonePage) templ.Component { return page("done", p) }

type DeliveriesPage struct {
	Chrome
	Deliveries []domain.DeliveryResult
}

// Deliveries renders the recent rows of the delivery ledger.
func Deliveries(p DeliveriesPage) templ.Component { return page("deliveries", p) }
