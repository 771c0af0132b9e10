// Package extract pulls candidate contact details out of raw page markup.
// It is pure text-in/struct-out: no network or storage side effects.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxEmails = 5
	maxPhones = 3
	maxFaxes  = 3
)

var (
	scriptBlocks = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	styleBlocks  = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	markupTags   = regexp.MustCompile(`<[^>]*>`)
	whitespace   = regexp.MustCompile(`\s+`)

	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	// Loose domestic format: leading 0, digit groups separated by hyphens,
	// spaces, or nothing. Intentionally permissive; false positives are
	// filtered by a human reviewing the lead list.
	phonePattern = regexp.MustCompile(`0\d{1,4}[-\s]?\d{1,4}[-\s]?\d{3,4}`)
	faxPattern   = regexp.MustCompile(`(?:FAX|Fax|fax|ファックス|ＦＡＸ)\s*[:：]?\s*(0[\d\-\s]{7,12}\d)`)

	titleSeparators = []string{"|", "｜", "—", "–", " - ", "：", " : "}
)

// excludedDomains rejects consumer webmail and placeholder addresses that
// never belong to a prospect company.
var excludedDomains = []string{
	"gmail.com",
	"yahoo.co.jp",
	"yahoo.com",
	"hotmail.com",
	"outlook.com",
	"icloud.com",
	"docomo.ne.jp",
	"ezweb.ne.jp",
	"softbank.ne.jp",
	"example.com",
	"example.co.jp",
	"example.jp",
	"test.com",
	"localhost",
}

var excludedLocalParts = []string{"noreply", "no-reply", "mailer-daemon"}

// Contacts holds the candidate contact fields extracted from one page.
type Contacts struct {
	CompanyName string
	Emails      []string
	Phones      []string
	Faxes       []string
}

// Extractor scans markup for contact details. The zero value is not usable;
// construct with New so operator-owned domains join the exclusion list.
type Extractor struct {
	excluded map[string]struct{}
}

// New builds an Extractor. ownDomains are the operator's sending domains,
// excluded so the pipeline never leads itself.
func New(ownDomains ...string) *Extractor {
	excluded := make(map[string]struct{}, len(excludedDomains)+len(ownDomains))
	for _, d := range excludedDomains {
		excluded[d] = struct{}{}
	}
	for _, d := range ownDomains {
		excluded[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return &Extractor{excluded: excluded}
}

// Extract scans markup and returns up to 5 emails, 3 phones, and 3 faxes,
// deduplicated in first-occurrence order, plus a best-effort company name.
func (e *Extractor) Extract(markup string) Contacts {
	text := stripMarkup(markup)

	var out Contacts
	out.CompanyName = companyName(markup)

	for _, m := range emailPattern.FindAllString(text, -1) {
		if !e.IsValidCompanyEmail(m) {
			continue
		}
		out.Emails = appendUnique(out.Emails, m, maxEmails)
	}
	for _, m := range faxPattern.FindAllStringSubmatch(text, -1) {
		out.Faxes = appendUnique(out.Faxes, strings.TrimSpace(m[1]), maxFaxes)
	}
	for _, m := range phonePattern.FindAllString(text, -1) {
		out.Phones = appendUnique(out.Phones, m, maxPhones)
	}
	return out
}

// IsValidCompanyEmail reports whether addr plausibly belongs to a prospect
// company: not consumer webmail, not a placeholder domain, not one of the
// operator's own domains, and not an automated sender.
func (e *Extractor) IsValidCompanyEmail(addr string) bool {
	at := strings.LastIndex(addr, "@")
	if at <= 0 || at == len(addr)-1 {
		return false
	}
	local := strings.ToLower(addr[:at])
	domain := strings.ToLower(addr[at+1:])
	if _, banned := e.excluded[domain]; banned {
		return false
	}
	for _, frag := range excludedLocalParts {
		if strings.Contains(local, frag) {
			return false
		}
	}
	return true
}

// stripMarkup removes script/style blocks and tags, collapsing whitespace,
// so patterns never match inside code or styling.
func stripMarkup(markup string) string {
	text := scriptBlocks.ReplaceAllString(markup, " ")
	text = styleBlocks.ReplaceAllString(text, " ")
	text = markupTags.ReplaceAllString(text, " ")
	return whitespace.ReplaceAllString(text, " ")
}

// companyName derives a display name from the title tag or site-name
// metadata. Returns "" when neither yields anything; the caller falls back
// to the hostname.
func companyName(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if name := firstTitleSegment(title); name != "" {
		return name
	}
	siteName, _ := doc.Find(`meta[property="og:site_name"]`).First().Attr("content")
	return strings.TrimSpace(siteName)
}

// firstTitleSegment cuts the title at the earliest separator, since Japanese
// company sites near-universally append page names after a delimiter.
func firstTitleSegment(title string) string {
	cut := len(title)
	for _, sep := range titleSeparators {
		if i := strings.Index(title, sep); i >= 0 && i < cut {
			cut = i
		}
	}
	return strings.TrimSpace(title[:cut])
}

func appendUnique(list []string, v string, limit int) []string {
	if v == "" || len(list) >= limit {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
