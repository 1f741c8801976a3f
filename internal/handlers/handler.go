package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/csrf"

	"github.com/csg33k/alta-clientes/internal/adapters/pdf"
	"github.com/csg33k/alta-clientes/internal/domain"
	"github.com/csg33k/alta-clientes/internal/intake"
	"github.com/csg33k/alta-clientes/internal/ports"
	"github.com/csg33k/alta-clientes/internal/templates"
)

const (
	sessionCookie = "alta_session"
	flashCookie   = "alta_flash"
)

// Messages shown to the user.
const (
	msgClientFirst = "Por favor, rellena primero el formulario de cliente."
	msgNoPlant     = "Debes rellenar al menos los datos de una planta antes de continuar."
	msgTemplate    = "No se pudo generar la documentación."
	msgConfig      = "Error de configuración: el servidor no tiene configurado el envío de correo."
	msgSent        = "Documentación enviada correctamente."
	msgSendFailed  = "Error enviando: "
)

// Finalizer completes a submission; *intake.Service satisfies it.
type Finalizer interface {
	Finalize(ctx context.Context, rec domain.Record) (*intake.Outcome, error)
}

type Options struct {
	// CSRFKey enables CSRF protection on the forms when set (32 bytes).
	CSRFKey       []byte
	SecureCookies bool
}

type Handler struct {
	sessions ports.SessionStore
	svc      Finalizer
	ledger   ports.DeliveryLog
	opts     Options
}

func New(sessions ports.SessionStore, svc Finalizer, ledger ports.DeliveryLog, opts Options) *Handler {
	return &Handler{sessions: sessions, svc: svc, ledger: ledger, opts: opts}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/envios", h.deliveries)

	r.Group(func(r chi.Router) {
		if len(h.opts.CSRFKey) > 0 {
			if !h.opts.SecureCookies {
				r.Use(plaintext)
			}
			r.Use(csrf.Protect(h.opts.CSRFKey,
				csrf.Secure(h.opts.SecureCookies),
				csrf.Path("/"),
				csrf.FieldName("csrf_token"),
			))
		}
		r.Get("/", h.clientForm)
		r.Post("/plantas", h.savePlantsStep)
		r.Get("/plantas", h.plantsWithoutClient)
		r.Post("/guardar", h.finalize)
	})
	return r
}

// clientForm renders step one, prefilled from the session when the user
// comes back to it.
func (h *Handler) clientForm(w http.ResponseWriter, r *http.Request) {
	values := domain.Record{}
	if id := sessionID(r); id != "" {
		if rec, err := h.sessions.Load(r.Context(), id); err == nil {
			values = rec
		} else {
			slog.Warn("could not load session", "err", err)
		}
	}
	render(w, r, templates.ClientForm(templates.ClientFormPage{
		Chrome: h.chrome(r, h.popFlash(w, r)...),
		Values: values,
	}))
}

// savePlantsStep stores the client form and renders step two.
func (h *Handler) savePlantsStep(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	rec := formRecord(r)
	id := sessionID(r)
	if id == "" {
		id = uuid.NewString()
	}
	if err := h.sessions.Save(r.Context(), id, rec); err != nil {
		slog.Error("could not save session", "err", err)
		http.Error(w, "no se pudo guardar el formulario", 500)
		return
	}
	h.setCookie(w, sessionCookie, id)
	render(w, r, templates.PlantsForm(templates.PlantsFormPage{
		Chrome:     h.chrome(r),
		ClientName: rec.ClientName(),
	}))
}

func (h *Handler) plantsWithoutClient(w http.ResponseWriter, r *http.Request) {
	h.redirectWithFlash(w, r, msgClientFirst)
}

// finalize merges both steps and runs the submission.
func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	id := sessionID(r)
	if id == "" {
		h.redirectWithFlash(w, r, msgClientFirst)
		return
	}
	saved, err := h.sessions.Load(r.Context(), id)
	if err != nil {
		slog.Error("could not load session", "err", err)
		http.Error(w, "no se pudo recuperar el formulario", 500)
		return
	}
	if len(saved) == 0 {
		h.redirectWithFlash(w, r, msgClientFirst)
		return
	}
	pageTwo := formRecord(r)
	rec := domain.Merge(saved, pageTwo)

	out, err := h.svc.Finalize(r.Context(), rec)
	var partial *domain.PartialDeliveryError
	switch {
	case errors.Is(err, domain.ErrValidation):
		h.plantsAgain(w, r, rec, pageTwo, msgNoPlant)
		return
	case errors.Is(err, domain.ErrTemplate):
		slog.Error("document generation failed", "client", rec.ClientName(), "err", err)
		h.plantsAgain(w, r, rec, pageTwo, msgTemplate)
		return
	case errors.Is(err, domain.ErrConfig):
		slog.Error("cannot deliver submission", "client", rec.ClientName(), "err", err)
		render(w, r, templates.Done(templates.DonePage{Chrome: h.chrome(r, msgConfig)}))
		return
	case errors.As(err, &partial):
		// Documents were generated; the failure is reported and the form is done.
	case err != nil:
		slog.Error("finalize failed", "client", rec.ClientName(), "err", err)
		http.Error(w, "error interno", 500)
		return
	}

	if err := h.sessions.Delete(r.Context(), id); err != nil {
		slog.Warn("could not delete session", "err", err)
	}
	h.clearCookie(w, sessionCookie)

	page := templates.DonePage{
		ClientName: out.ClientName,
		Recipients: out.Recipients,
		Queued:     out.Queued,
	}
	switch {
	case partial != nil:
		page.Chrome = h.chrome(r, msgSendFailed+partial.Error())
	case !out.Queued:
		page.Chrome = h.chrome(r, msgSent)
		page.FlashOK = true
	default:
		page.Chrome = h.chrome(r)
	}
	if uri, err := receiptURI(rec, out); err != nil {
		slog.Warn("receipt not rendered", "client", out.ClientName, "err", err)
	} else {
		page.ReceiptURI = uri
		page.ReceiptName = "Justificante alta - " + out.ClientName + ".pdf"
	}
	render(w, r, templates.Done(page))
}

func (h *Handler) plantsAgain(w http.ResponseWriter, r *http.Request, rec, values domain.Record, flash string) {
	render(w, r, templates.PlantsForm(templates.PlantsFormPage{
		Chrome:     h.chrome(r, flash),
		ClientName: rec.ClientName(),
		Values:     values,
	}))
}

func (h *Handler) deliveries(w http.ResponseWriter, r *http.Request) {
	list, err := h.ledger.RecentDeliveries(r.Context(), 100)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	render(w, r, templates.Deliveries(templates.DeliveriesPage{Deliveries: list}))
}

// receiptURI renders the receipt as a data: URI so the confirmation page can
// offer it without keeping anything on the server.
func receiptURI(rec domain.Record, out *intake.Outcome) (template.URL, error) {
	b, err := pdf.Receipt(pdf.ReceiptInput{
		Record:     rec,
		Plants:     out.Plants,
		Recipients: out.Recipients,
		Messages:   len(out.Messages),
		Queued:     out.Queued,
		Date:       time.Now(),
	})
	if err != nil {
		return "", err
	}
	return template.URL("data:application/pdf;base64," + base64.StdEncoding.EncodeToString(b)), nil
}

func (h *Handler) chrome(r *http.Request, flashes ...string) templates.Chrome {
	c := templates.Chrome{Flashes: flashes}
	if len(h.opts.CSRFKey) > 0 {
		c.CSRFField = csrf.TemplateField(r)
	}
	return c
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, msg string) {
	h.setCookie(w, flashCookie, base64.RawURLEncoding.EncodeToString([]byte(msg)))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending flash message, if any, and clears it.
func (h *Handler) popFlash(w http.ResponseWriter, r *http.Request) []string {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	h.clearCookie(w, flashCookie)
	msg, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil || len(msg) == 0 {
		return nil
	}
	return []string{string(msg)}
}

func sessionID(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

// formRecord flattens the posted form, keeping the first value of each key.
// The CSRF token is not part of the submission.
func formRecord(r *http.Request) domain.Record {
	rec := make(domain.Record, len(r.PostForm))
	for k, v := range r.PostForm {
		if k == "csrf_token" || len(v) == 0 {
			continue
		}
		rec[k] = v[0]
	}
	return rec
}

// render writes a templ component to the response.
func render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), 500)
	}
}
