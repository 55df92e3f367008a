package domain

// TemplateKind enumerates the notification events that own an email template.
type TemplateKind string

const (
	TemplateSignup                   TemplateKind = "signup"
	TemplateApproval                 TemplateKind = "approval"
	TemplateRejection                TemplateKind = "rejection"
	TemplateMoreInfo                 TemplateKind = "moreInfo"
	TemplateResubmissionConfirmation TemplateKind = "resubmissionConfirmation"
)

// TemplateKinds lists every kind in display order.
func TemplateKinds() []TemplateKind {
	return []TemplateKind{
		TemplateSignup,
		TemplateResubmissionConfirmation,
		TemplateApproval,
		TemplateRejection,
		TemplateMoreInfo,
	}
}

// Valid reports whether k is one of the known kinds.
func (k TemplateKind) Valid() bool {
	for _, known := range TemplateKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// CTA is a call-to-action button.
type CTA struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	URL  string `json:"url"`
}

// FooterLink is a text link rendered under the footer note.
type FooterLink struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	URL  string `json:"url"`
}

// SocialLink is a social profile rendered as an icon.
type SocialLink struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	IconURL string `json:"iconUrl"`
}

// Design holds per-template presentation. Slices are nil when absent so that
// stored records without the field pick up the default, while an explicit
// empty list is kept as "none".
type Design struct {
	Title        string       `json:"title,omitempty"`
	Greeting     string       `json:"greeting,omitempty"`
	PrimaryColor string       `json:"primaryColor,omitempty"`
	Background   string       `json:"background,omitempty"`
	CTAs         []CTA        `json:"ctas"`
	FooterNote   string       `json:"footerNote,omitempty"`
	FooterLinks  []FooterLink `json:"footerLinks"`
}

// EmailTemplate is the stored record for one TemplateKind.
type EmailTemplate struct {
	Subject string  `json:"subject"`
	Body    string  `json:"body"`
	HTML    *string `json:"html"`
	UseHTML *bool   `json:"useHtml,omitempty"`
	Design  *Design `json:"design,omitempty"`
}

// EmailTemplates maps each kind to its template.
type EmailTemplates map[TemplateKind]EmailTemplate

// SharedBranding is stored once per store and merged into every template at render time.
type SharedBranding struct {
	LogoURL     string       `json:"logoUrl,omitempty"`
	BannerURL   string       `json:"bannerUrl,omitempty"`
	SocialLinks []SocialLink `json:"socialLinks"`
}
