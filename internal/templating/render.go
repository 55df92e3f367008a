package templating

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/spec-kit/signup-forms/internal/domain"
)

//go:embed email.html.tmpl
var emailLayout string

var layout = template.Must(template.New("email").Parse(emailLayout))

var (
	requiredInfoPattern    = regexp.MustCompile(`\{\{\s*required_information\s*\}\}`)
	merchantMessagePattern = regexp.MustCompile(`\{\{\s*merchant_message\s*\}\}`)
	doubledPeriodPattern   = regexp.MustCompile(`\.\s*\.`)
	colonPeriodPattern     = regexp.MustCompile(`:\s*\.`)
)

// Message is a fully rendered email.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

type link struct {
	Text string
	URL  template.URL
}

type socialLink struct {
	Name    string
	URL     template.URL
	IconURL template.URL
}

type correctionPanel struct {
	Fields       []string
	MessageLines []string
}

type emailView struct {
	PlatformName string
	Brand        string
	Background   string
	LogoURL      template.URL
	BannerURL    template.URL
	Heading      string
	Greeting     string
	BodyLines    []string
	Correction   *correctionPanel
	CTAs         []link
	Socials      []socialLink
	FooterNote   string
	FooterLinks  []link
}

// Render produces the subject, HTML document and plain-text alternative for kind.
func Render(kind domain.TemplateKind, tpl domain.EmailTemplate, branding *domain.SharedBranding, vars Variables) (Message, error) {
	view := buildView(kind, tpl, branding, vars)

	body := ""
	if custom := customHTML(tpl); custom != "" {
		body = SubstituteHTML(custom, vars)
	} else {
		var buf bytes.Buffer
		if err := layout.Execute(&buf, view); err != nil {
			return Message{}, fmt.Errorf("render %s email: %w", kind, err)
		}
		body = strings.TrimSpace(buf.String())
	}

	return Message{
		Subject: RenderSubject(tpl, vars),
		HTML:    body,
		Text:    plainText(view),
	}, nil
}

// RenderSubject substitutes variables into the subject line.
func RenderSubject(tpl domain.EmailTemplate, vars Variables) string {
	return strings.TrimSpace(Substitute(tpl.Subject, vars))
}

func customHTML(tpl domain.EmailTemplate) string {
	if tpl.HTML == nil || strings.TrimSpace(*tpl.HTML) == "" {
		return ""
	}
	if tpl.UseHTML != nil && !*tpl.UseHTML {
		return ""
	}
	return *tpl.HTML
}

func buildView(kind domain.TemplateKind, tpl domain.EmailTemplate, branding *domain.SharedBranding, vars Variables) emailView {
	design := domain.Design{}
	if tpl.Design != nil {
		design = *tpl.Design
	}

	view := emailView{
		PlatformName: vars["platform_name"],
		Brand:        orDefault(design.PrimaryColor, defaultPrimaryColor),
		Background:   orDefault(design.Background, defaultBackground),
		Greeting:     Substitute(orDefault(design.Greeting, defaultGreeting), vars),
		FooterNote:   Substitute(orDefault(design.FooterNote, defaultFooterNote), vars),
	}

	heading := design.Title
	if heading == "" {
		heading = DefaultTitle(kind)
	}
	if heading == "" {
		heading = "{{platform_name}}"
	}
	view.Heading = Substitute(heading, vars)

	if branding != nil {
		view.LogoURL, _ = emailURL(branding.LogoURL)
		view.BannerURL, _ = emailURL(branding.BannerURL)
		view.Socials = emailSocials(branding.SocialLinks)
	}

	body := tpl.Body
	if kind == domain.TemplateMoreInfo {
		if panel, ok := correctionFrom(vars); ok {
			view.Correction = panel
			body = stripCorrectionPlaceholders(body, panel.Fields)
		}
	}
	view.BodyLines = splitLines(Substitute(body, vars))

	view.CTAs = links(design.CTAs, vars)
	view.FooterLinks = links(design.FooterLinks, vars)
	return view
}

// links keeps the entries that have text and a usable URL.
func links[T domain.CTA | domain.FooterLink](items []T, vars Variables) []link {
	var out []link
	for _, it := range items {
		item := domain.CTA(it)
		if strings.TrimSpace(item.Text) == "" {
			continue
		}
		href, ok := emailURL(Substitute(item.URL, vars))
		if !ok {
			continue
		}
		out = append(out, link{Text: Substitute(item.Text, vars), URL: href})
	}
	return out
}

var emailSchemes = map[string]bool{"http": true, "https": true, "mailto": true, "tel": true}

// emailURL vets raw for use in a src or href attribute. Accepted values are
// http(s), mailto and tel links, inline data:image/ sources and scheme-less
// references; everything else reports false.
func emailURL(raw string) (template.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.IndexFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0 {
		return "", false
	}
	if strings.HasPrefix(strings.ToLower(raw), "data:image/") {
		return template.URL(raw), true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" && !emailSchemes[strings.ToLower(u.Scheme)] {
		return "", false
	}
	return template.URL(raw), true
}

func correctionFrom(vars Variables) (*correctionPanel, bool) {
	required := strings.TrimSpace(vars["required_information"])
	if required == "" {
		return nil, false
	}
	var fields []string
	for _, f := range strings.Split(required, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return nil, false
	}
	panel := &correctionPanel{Fields: fields}
	if msg := strings.TrimSpace(vars["merchant_message"]); msg != "" {
		panel.MessageLines = strings.Split(strings.ReplaceAll(msg, "\r\n", "\n"), "\n")
	}
	return panel, true
}

// stripCorrectionPlaceholders removes the required_information and
// merchant_message placeholders, and the field list when it appears verbatim
// as "A, B", so the panel content is not repeated in the body. Field names
// used elsewhere in the prose are left alone.
func stripCorrectionPlaceholders(body string, fields []string) string {
	body = requiredInfoPattern.ReplaceAllString(body, "")
	body = merchantMessagePattern.ReplaceAllString(body, "")
	if joined := strings.Join(fields, ", "); joined != "" {
		body = strings.ReplaceAll(body, joined, "")
	}
	body = doubledPeriodPattern.ReplaceAllString(body, ".")
	body = colonPeriodPattern.ReplaceAllString(body, ".")
	return strings.TrimSpace(body)
}

func emailSocials(items []domain.SocialLink) []socialLink {
	var out []socialLink
	for _, l := range items {
		if strings.TrimSpace(l.Name) == "" && strings.TrimSpace(l.URL) == "" {
			continue
		}
		icon, ok := emailURL(emailIconURL(l))
		if !ok {
			continue
		}
		href, ok := emailURL(l.URL)
		if !ok {
			href = "#"
		}
		name := strings.TrimSpace(l.Name)
		if name == "" {
			name = "Social"
		}
		out = append(out, socialLink{Name: name, URL: href, IconURL: icon})
	}
	return out
}

func splitLines(text string) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func plainText(v emailView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s,\n\n", v.Greeting)
	b.WriteString(strings.Join(v.BodyLines, "\n"))
	if v.Correction != nil {
		b.WriteString("\n\nFields requiring correction:\n")
		for _, f := range v.Correction.Fields {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		if len(v.Correction.MessageLines) > 0 {
			b.WriteString("\n")
			b.WriteString(strings.Join(v.Correction.MessageLines, "\n"))
		}
	}
	for _, cta := range v.CTAs {
		if cta.URL != "" {
			fmt.Fprintf(&b, "\n\n%s: %s", cta.Text, cta.URL)
		}
	}
	fmt.Fprintf(&b, "\n\n%s\n", v.FooterNote)
	return b.String()
}
