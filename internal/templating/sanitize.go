package templating

import (
	"strings"

	"github.com/spec-kit/signup-forms/internal/domain"
)

// SanitizeSocialLinks rewrites icons served through the retired tracking proxy,
// and fills empty ones, with the bitmap icon for the link's platform.
// The input is not modified. changed reports whether any link was rewritten.
func SanitizeSocialLinks(links []domain.SocialLink) ([]domain.SocialLink, bool) {
	if links == nil {
		return nil, false
	}
	out := make([]domain.SocialLink, len(links))
	changed := false
	for i, link := range links {
		out[i] = link
		if strings.TrimSpace(link.IconURL) == "" || IsLegacyIconURL(link.IconURL) {
			out[i].IconURL = ResolveIconURL(link.Name, link.URL, FormatEmail)
			changed = true
		}
	}
	return out, changed
}

// SanitizeBranding applies SanitizeSocialLinks to a branding record.
func SanitizeBranding(branding domain.SharedBranding) (domain.SharedBranding, bool) {
	links, changed := SanitizeSocialLinks(branding.SocialLinks)
	branding.SocialLinks = links
	return branding, changed
}
