package templating

import "github.com/spec-kit/signup-forms/internal/domain"

const (
	defaultPrimaryColor = "#2563eb"
	defaultBackground   = "#f7fafc"
	defaultGreeting     = "Hello {{name}}"
	defaultFooterNote   = "This email was sent to {{email}}"
)

type kindDefaults struct {
	subject    string
	body       string
	title      string
	primary    string
	background string
	cta        domain.CTA
}

var defaults = map[domain.TemplateKind]kindDefaults{
	domain.TemplateSignup: {
		subject:    "Notification from {{platform_name}}: Your Signup Request Has Been Received",
		body:       "We have received your signup request and initiated the review process. Our team is currently validating the information you provided to ensure it meets our account requirements. You will receive an update once this review is complete. If any clarification or additional details are needed, we will contact you directly. Thank you for your patience while we complete this verification step.",
		title:      "Application Received Successfully",
		primary:    "#2563eb",
		background: "#f7fafc",
		cta:        domain.CTA{ID: "view-status", Text: "Check Application Status", URL: "{{action_url}}"},
	},
	domain.TemplateApproval: {
		subject:    "{{platform_name}} Account Update: Your Application Has Been Approved",
		body:       "Your signup request has been approved, and your account is now active. You may now log in to begin configuring your store and accessing your dashboard. We recommend reviewing the available onboarding resources to support your initial setup. Should you need any assistance during this process, our support team is available to help. Thank you for choosing our platform for your business operations.",
		title:      "Welcome Aboard! You're Approved",
		primary:    "#059669",
		background: "#ecfdf5",
		cta:        domain.CTA{ID: "login", Text: "Login to Your Account", URL: "{{action_url}}"},
	},
	domain.TemplateRejection: {
		subject:    "{{platform_name}} Review Outcome: Status of Your Signup Request",
		body:       "After a thorough review of your signup information, we are unable to approve your request at this time. This decision reflects the criteria required for account activation on our platform. If you have updated information or additional context that may support reconsideration, you are welcome to reply to this email. Our team will review any new details you provide. Thank you for your interest in our services and for taking the time to apply.",
		title:      "Application Status Update",
		primary:    "#e11d48",
		background: "#fff1f2",
		cta:        domain.CTA{ID: "contact", Text: "Contact Support", URL: "{{action_url}}"},
	},
	domain.TemplateMoreInfo: {
		subject:    "Action Required from {{platform_name}}: Please Resubmit Your Signup Form",
		body:       "We need you to resubmit your signup form with corrections. Please review the highlighted fields below and resubmit your application through the signup form.\n\nOnce you resubmit, we will review your updated information and proceed accordingly.\n\nIf you have any questions or need clarification, please don't hesitate to reach out to us.",
		title:      "Resubmission Required",
		primary:    "#f59e0b",
		background: "#fffbeb",
		cta:        domain.CTA{ID: "resubmit", Text: "Resubmit Form", URL: "{{action_url}}"},
	},
	domain.TemplateResubmissionConfirmation: {
		subject:    "Notification from {{platform_name}}: Your Resubmission Has Been Received",
		body:       "Thank you for resubmitting your signup request with the requested corrections. We have received your updated information and our team will review it shortly. You will receive an update once the review is complete. We appreciate your prompt response and cooperation.",
		title:      "Resubmission Received - Under Review",
		primary:    "#9333ea",
		background: "#faf5ff",
		cta:        domain.CTA{ID: "view-status", Text: "Check Application Status", URL: "{{action_url}}"},
	},
}

func defaultFooterLinks() []domain.FooterLink {
	return []domain.FooterLink{
		{ID: "contact", Text: "Contact Us", URL: "#"},
		{ID: "privacy", Text: "Privacy Policy", URL: "#"},
	}
}

// DefaultTitle is the heading used when a design sets none.
func DefaultTitle(kind domain.TemplateKind) string {
	return defaults[kind].title
}

// DefaultTemplate returns a fresh copy of the built-in template for kind.
func DefaultTemplate(kind domain.TemplateKind) domain.EmailTemplate {
	d, ok := defaults[kind]
	if !ok {
		return domain.EmailTemplate{Design: &domain.Design{FooterLinks: defaultFooterLinks(), CTAs: []domain.CTA{}}}
	}
	useHTML := true
	return domain.EmailTemplate{
		Subject: d.subject,
		Body:    d.body,
		UseHTML: &useHTML,
		Design: &domain.Design{
			Title:        d.title,
			PrimaryColor: d.primary,
			Background:   d.background,
			CTAs:         []domain.CTA{d.cta},
			FooterLinks:  defaultFooterLinks(),
		},
	}
}

// DefaultTemplates returns the built-in template for every kind.
func DefaultTemplates() domain.EmailTemplates {
	out := make(domain.EmailTemplates, len(defaults))
	for _, kind := range domain.TemplateKinds() {
		out[kind] = DefaultTemplate(kind)
	}
	return out
}

// MergeWithDefaults overlays a stored template on the default for its kind.
// Empty strings and nil slices take the default; an empty slice is kept.
func MergeWithDefaults(kind domain.TemplateKind, stored *domain.EmailTemplate) domain.EmailTemplate {
	def := DefaultTemplate(kind)
	if stored == nil {
		return def
	}

	merged := domain.EmailTemplate{
		Subject: orDefault(stored.Subject, def.Subject),
		Body:    orDefault(stored.Body, def.Body),
		HTML:    stored.HTML,
		UseHTML: stored.UseHTML,
		Design:  def.Design,
	}
	if merged.UseHTML == nil {
		merged.UseHTML = def.UseHTML
	}
	if stored.Design == nil {
		return merged
	}

	sd, dd := stored.Design, def.Design
	design := domain.Design{
		Title:        orDefault(sd.Title, dd.Title),
		Greeting:     orDefault(sd.Greeting, dd.Greeting),
		PrimaryColor: orDefault(sd.PrimaryColor, dd.PrimaryColor),
		Background:   orDefault(sd.Background, dd.Background),
		FooterNote:   orDefault(sd.FooterNote, dd.FooterNote),
		CTAs:         dd.CTAs,
		FooterLinks:  dd.FooterLinks,
	}
	if sd.CTAs != nil {
		design.CTAs = append([]domain.CTA{}, sd.CTAs...)
	}
	if sd.FooterLinks != nil {
		design.FooterLinks = append([]domain.FooterLink{}, sd.FooterLinks...)
	}
	merged.Design = &design
	return merged
}

// MergeAllWithDefaults returns a complete template set, one per kind.
func MergeAllWithDefaults(stored domain.EmailTemplates) domain.EmailTemplates {
	out := make(domain.EmailTemplates, len(defaults))
	for _, kind := range domain.TemplateKinds() {
		if tpl, ok := stored[kind]; ok {
			out[kind] = MergeWithDefaults(kind, &tpl)
			continue
		}
		out[kind] = DefaultTemplate(kind)
	}
	return out
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
