package email

import (
	htmltemplate "html/template"
	"strings"
)

// Tokens are the shared design values every template draws from.
type Tokens struct {
	Primary    string
	PrimaryInk string
	Ink        string
	Muted      string
	Surface    string
	Border     string
	Font       string
	Radius     string
}

// DefaultTokens is the marketplace palette.
var DefaultTokens = Tokens{
	Primary:    "#6d28d9",
	PrimaryInk: "#ffffff",
	Ink:        "#1f2937",
	Muted:      "#6b7280",
	Surface:    "#f5f3ff",
	Border:     "#e5e7eb",
	Font:       "-apple-system,Segoe UI,Helvetica,Arial,sans-serif",
	Radius:     "8px",
}

// styles resolves named inline styles from t.
func (t Tokens) styles() map[string]string {
	return map[string]string{
		"body":      "margin:0;padding:24px;background:" + t.Surface + ";font-family:" + t.Font + ";color:" + t.Ink,
		"container": "max-width:560px;margin:0 auto;background:#ffffff;border-radius:" + t.Radius + ";padding:32px",
		"brand":     "margin:0 0 24px;font-weight:700;font-size:18px;color:" + t.Primary,
		"heading":   "margin:0 0 16px;font-size:22px;line-height:28px;color:" + t.Ink,
		"text":      "margin:0 0 16px;font-size:15px;line-height:22px;color:" + t.Ink,
		"muted":     "margin:0 0 16px;font-size:13px;line-height:20px;color:" + t.Muted,
		"quote":     "margin:0 0 16px;padding:12px 16px;border-left:4px solid " + t.Primary + ";background:" + t.Surface + ";font-size:15px",
		"amount":    "margin:8px 0 16px;font-size:28px;font-weight:700;color:" + t.Primary,
		"table":     "width:100%;border-collapse:collapse;margin:0 0 16px",
		"cellLabel": "padding:6px 0;font-size:13px;color:" + t.Muted + ";border-bottom:1px solid " + t.Border,
		"cell":      "padding:6px 0;font-size:15px;text-align:right;border-bottom:1px solid " + t.Border,
		"button":    "display:inline-block;padding:12px 20px;background:" + t.Primary + ";color:" + t.PrimaryInk + ";border-radius:" + t.Radius + ";text-decoration:none;font-weight:600",
		"link":      "color:" + t.Primary,
		"hr":        "border:none;border-top:1px solid " + t.Border + ";margin:32px 0 16px",
		"footer":    "margin:0;font-size:12px;line-height:18px;color:" + t.Muted,
	}
}

// styleFunc returns the template func resolving a style name. Unknown names
// render as an empty style.
func (t Tokens) styleFunc() func(string) htmltemplate.CSS {
	m := t.styles()
	return func(name string) htmltemplate.CSS {
		// Values come from Tokens, never from user data.
		return htmltemplate.CSS(strings.TrimSpace(m[name]))
	}
}
