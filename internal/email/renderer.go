// Package email renders the marketplace's transactional messages and hands
// them to a Mailer.
//
// Each message has an HTML and a text variant embedded from templates/. Both
// share a layout; the HTML variant takes its inline styles from Tokens so
// every message looks the same. The text variant also defines the subject.
package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"sort"
	"strings"
	texttemplate "text/template"
	"time"
	_ "time/tzdata" // Europe/Oslo on hosts without zoneinfo

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template names.
const (
	TplWelcome             = "welcome"
	TplBookingRequested    = "booking_requested"
	TplBookingConfirmed    = "booking_confirmed"
	TplBookingCancelled    = "booking_cancelled"
	TplBookingCompleted    = "booking_completed"
	TplPaymentRefunded     = "payment_refunded"
	TplNewChatMessage      = "new_chat_message"
	TplAffiliateCommission = "affiliate_commission"
)

// Names lists every template the Renderer knows.
var Names = []string{
	TplWelcome, TplBookingRequested, TplBookingConfirmed, TplBookingCancelled,
	TplBookingCompleted, TplPaymentRefunded, TplNewChatMessage, TplAffiliateCommission,
}

// Brand is rendered in every layout.
type Brand struct {
	Name    string
	Address string
	BaseURL string
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// view is the root value templates execute against.
type view struct {
	Brand   Brand
	Subject string
	D       any
}

type buttonData struct {
	URL   string
	Label string
}

// Renderer holds the parsed templates. It is safe for concurrent use.
type Renderer struct {
	brand Brand
	html  map[string]*htmltemplate.Template
	text  map[string]*texttemplate.Template
}

var oslo = mustLocation("Europe/Oslo")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

var weekdays = [...]string{"søndag", "mandag", "tirsdag", "onsdag", "torsdag", "fredag", "lørdag"}

// FormatDateTime renders t in Oslo time, e.g. "fredag 06.06.2025 kl. 14:30".
func FormatDateTime(t time.Time) string {
	lt := t.In(oslo)
	return fmt.Sprintf("%s %s kl. %s", weekdays[lt.Weekday()], lt.Format("02.01.2006"), lt.Format("15:04"))
}

func funcs(tokens Tokens) map[string]any {
	return map[string]any{
		"style":    tokens.styleFunc(),
		"nok":      domain.FormatNOK,
		"datetime": FormatDateTime,
		"join":     strings.Join,
		"button":   func(url, label string) buttonData { return buttonData{URL: url, Label: label} },
	}
}

// NewRenderer parses every embedded template.
func NewRenderer(brand Brand, tokens Tokens) (*Renderer, error) {
	brand.BaseURL = strings.TrimRight(brand.BaseURL, "/")
	fm := funcs(tokens)

	htmlBase, err := htmltemplate.New("base").Funcs(htmltemplate.FuncMap(fm)).ParseFS(templateFS, "templates/layout.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html layout: %w", err)
	}
	textBase, err := texttemplate.New("base").Funcs(texttemplate.FuncMap(fm)).ParseFS(templateFS, "templates/layout.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text layout: %w", err)
	}

	r := &Renderer{
		brand: brand,
		html:  make(map[string]*htmltemplate.Template, len(Names)),
		text:  make(map[string]*texttemplate.Template, len(Names)),
	}
	for _, name := range Names {
		h, err := htmlBase.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := h.ParseFS(templateFS, "templates/"+name+".html.tmpl"); err != nil {
			return nil, fmt.Errorf("parse %s.html: %w", name, err)
		}
		t, err := textBase.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".txt.tmpl"); err != nil {
			return nil, fmt.Errorf("parse %s.txt: %w", name, err)
		}
		r.html[name], r.text[name] = h, t
	}
	return r, nil
}

// Brand returns the brand the renderer was built with.
func (r *Renderer) Brand() Brand { return r.brand }

// Render executes template name with data. To is left empty.
func (r *Renderer) Render(name string, data any) (Message, error) {
	h, ok := r.html[name]
	t := r.text[name]
	if !ok || t == nil {
		known := append([]string(nil), Names...)
		sort.Strings(known)
		return Message{}, fmt.Errorf("unknown email template %q (known: %s)", name, strings.Join(known, ", "))
	}
	v := view{Brand: r.brand, D: data}

	var subj bytes.Buffer
	if err := t.ExecuteTemplate(&subj, "subject", v); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", name, err)
	}
	v.Subject = strings.Join(strings.Fields(subj.String()), " ")

	var txt, html bytes.Buffer
	if err := t.ExecuteTemplate(&txt, "layout", v); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	if err := h.ExecuteTemplate(&html, "layout", v); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	return Message{Subject: v.Subject, HTML: html.String(), Text: strings.TrimSpace(txt.String()) + "\n"}, nil
}

// ---- template data ----

// WelcomeData fills TplWelcome.
type WelcomeData struct {
	Name string
	Role string
}

// BookingData fills the booking_* templates.
type BookingData struct {
	RecipientName string
	CustomerName  string
	StylistName   string
	Services      []string
	StartTime     time.Time
	Location      string
	TotalOre      int64
	Note          string
	Reason        string
	RefundOre     int64
	FeeOre        int64
	BookingURL    string
}

// RefundData fills TplPaymentRefunded.
type RefundData struct {
	RecipientName string
	StartTime     time.Time
	AmountOre     int64
	RefundedOre   int64
	CapturedOre   int64
	Reason        string
}

// ChatData fills TplNewChatMessage.
type ChatData struct {
	RecipientName string
	SenderName    string
	Preview       string
	BookingURL    string
}

// CommissionData fills TplAffiliateCommission.
type CommissionData struct {
	RecipientName string
	Code          string
	AmountOre     int64
}
