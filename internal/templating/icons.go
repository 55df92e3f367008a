package templating

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spec-kit/signup-forms/internal/domain"
)

// IconFormat selects which CDN an icon URL points at.
type IconFormat int

const (
	// FormatPreview resolves to vector icons for the in-app editor.
	FormatPreview IconFormat = iota
	// FormatEmail resolves to bitmap icons, which mail clients render reliably.
	FormatEmail
)

const (
	previewIconBase = "https://cdn.simpleicons.org"
	emailIconBase   = "https://img.icons8.com/color/24/000000"
	legacyIconHost  = "sendibt2.com"
)

type platform struct {
	slug       string
	names      []string
	exactNames []string
	domains    []string
	color      string
	bitmap     string
}

// Order matters: the first matching platform wins.
var platforms = []platform{
	{slug: "facebook", names: []string{"facebook"}, domains: []string{"facebook.com", "fb.com"}, color: "1877F2", bitmap: "facebook-new"},
	{slug: "x", names: []string{"twitter"}, exactNames: []string{"x"}, domains: []string{"twitter.com", "x.com"}, color: "000000", bitmap: "twitter--v1"},
	{slug: "instagram", names: []string{"instagram"}, domains: []string{"instagram.com"}, color: "E4405F", bitmap: "instagram-new"},
	{slug: "linkedin", names: []string{"linkedin"}, domains: []string{"linkedin.com"}, color: "0A66C2", bitmap: "linkedin"},
	{slug: "youtube", names: []string{"youtube"}, domains: []string{"youtube.com", "youtu.be"}, color: "FF0000", bitmap: "youtube-play"},
	{slug: "tiktok", names: []string{"tiktok"}, domains: []string{"tiktok.com"}, color: "000000", bitmap: "tiktok--v1"},
	{slug: "pinterest", names: []string{"pinterest"}, domains: []string{"pinterest.com"}, color: "BD081C", bitmap: "pinterest"},
	{slug: "snapchat", names: []string{"snapchat"}, domains: []string{"snapchat.com"}, color: "FFFC00", bitmap: "snapchat"},
	{slug: "reddit", names: []string{"reddit"}, domains: []string{"reddit.com"}, color: "FF4500", bitmap: "reddit"},
	{slug: "discord", names: []string{"discord"}, domains: []string{"discord.com", "discord.gg"}, color: "5865F2", bitmap: "discord-logo"},
	{slug: "github", names: []string{"github"}, domains: []string{"github.com"}, color: "181717", bitmap: "github--v1"},
	{slug: "whatsapp", names: []string{"whatsapp"}, domains: []string{"whatsapp.com", "wa.me"}, color: "25D366", bitmap: "whatsapp"},
	{slug: "telegram", names: []string{"telegram"}, domains: []string{"telegram.org", "t.me"}, color: "26A5E4", bitmap: "telegram-app"},
}

var fallbackPlatform = platform{slug: "share", color: "2563eb", bitmap: "share"}

// ResolveIconURL returns the icon for a social link in the requested format,
// falling back to a generic share icon when nothing matches.
func ResolveIconURL(name, link string, format IconFormat) string {
	p, _ := detect(name, link)
	return p.iconURL(format)
}

func (p platform) iconURL(format IconFormat) string {
	if format == FormatEmail {
		return fmt.Sprintf("%s/%s.png", emailIconBase, p.bitmap)
	}
	return fmt.Sprintf("%s/%s/%s", previewIconBase, p.slug, p.color)
}

func detect(name, link string) (platform, bool) {
	lowerName := strings.ToLower(strings.TrimSpace(name))
	host, lowerLink := linkHost(link)

	for _, p := range platforms {
		if p.matchesName(lowerName) || p.matchesLink(host, lowerLink) {
			return p, true
		}
	}
	return fallbackPlatform, false
}

func (p platform) matchesName(name string) bool {
	if name == "" {
		return false
	}
	for _, exact := range p.exactNames {
		if name == exact || strings.HasPrefix(name, exact+" ") {
			return true
		}
	}
	for _, n := range p.names {
		if strings.Contains(name, n) {
			return true
		}
	}
	return false
}

func (p platform) matchesLink(host, link string) bool {
	if link == "" {
		return false
	}
	for _, d := range p.domains {
		if host != "" {
			if host == d || strings.HasSuffix(host, "."+d) {
				return true
			}
			continue
		}
		if strings.Contains(link, d) {
			return true
		}
	}
	return false
}

// linkHost returns the lowercased host when link parses as an absolute URL,
// and the lowercased link itself for substring matching otherwise.
func linkHost(link string) (string, string) {
	lower := strings.ToLower(strings.TrimSpace(link))
	if lower == "" {
		return "", ""
	}
	candidate := lower
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil || u.Hostname() == "" || !strings.Contains(u.Hostname(), ".") {
		return "", lower
	}
	return strings.TrimPrefix(u.Hostname(), "www."), lower
}

// IsLegacyIconURL reports whether an icon points at the retired tracking proxy.
func IsLegacyIconURL(iconURL string) bool {
	return strings.Contains(strings.ToLower(iconURL), legacyIconHost)
}

// emailIconURL coerces a stored icon to one mail clients can display.
func emailIconURL(link domain.SocialLink) string {
	icon := strings.TrimSpace(link.IconURL)
	lower := strings.ToLower(icon)
	if icon == "" ||
		strings.Contains(lower, ".svg") ||
		strings.Contains(lower, "simpleicons.org") ||
		IsLegacyIconURL(icon) ||
		!(strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://")) {
		return ResolveIconURL(link.Name, link.URL, FormatEmail)
	}
	return icon
}
