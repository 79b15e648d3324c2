// internal/extract/draw.go
package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/valpere/klresults/pkg/types"
)

var (
	drawNumberRe  = regexp.MustCompile(`\(([^)]+)\)`)
	lotteryNameRe = regexp.MustCompile(`([A-Za-z\s]+)\s*\(`)
	titleCodeRe   = regexp.MustCompile(`\(([A-Z]{2,3})\)`)
	slugCodeRe    = regexp.MustCompile(`/([a-z0-9-]*kerala-lottery-result[-/])*([A-Z]{2,3})-(\d+)`)
	textCodeRe    = regexp.MustCompile(`\b([A-Z]{1,3})\s*\d{4,6}\b`)
	venueRe       = regexp.MustCompile(`\b(?:Venue|At)\b\s*[:\-]?\s*([A-Za-z0-9, .()]+)`)

	genericTitles = map[string]bool{
		"lottery results":        true,
		"kerala lottery results": true,
	}

	downloadExts = []string{".pdf", ".jpg", ".jpeg", ".png"}
)

// Metadata identifies one draw.
type Metadata struct {
	Title        string
	LotteryName  string
	LotteryCode  string
	DrawNumber   string
	DrawDate     string
	Venue        string
	DownloadLink string
}

// Parser turns a result page into a DrawRecord.
type Parser struct {
	loc    *time.Location
	now    func() time.Time
	window func(time.Time) bool
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithLocation sets the timezone used for "today".
func WithLocation(loc *time.Location) ParserOption {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ParserOption {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// WithScrapeWindow sets the predicate deciding whether an undated page may
// be stamped with today's date. The default accepts any time.
func WithScrapeWindow(window func(time.Time) bool) ParserOption {
	return func(p *Parser) {
		if window != nil {
			p.window = window
		}
	}
}

// NewParser creates a parser.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		loc:    time.UTC,
		now:    time.Now,
		window: func(time.Time) bool { return true },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParsePage parses the body returned for sourceURL. The body may be HTML or
// the plain text returned by a text-extraction proxy.
func (p *Parser) ParsePage(body, sourceURL string) (*types.DrawRecord, PrizeSource, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, SourceNone, fmt.Errorf("failed to parse page %s: %w", sourceURL, err)
	}
	rec, source := p.Parse(doc, body, sourceURL)
	return rec, source, nil
}

// Parse builds a record from a parsed document. pageText is the raw page
// body, scanned for dates and lottery codes when the title lacks them.
func (p *Parser) Parse(doc *goquery.Document, pageText, sourceURL string) (*types.DrawRecord, PrizeSource) {
	meta := p.ParseMetadata(doc, pageText, sourceURL)
	prizes, source := ExtractPrizes(doc)
	return &types.DrawRecord{
		LotteryName:  meta.LotteryName,
		DrawNumber:   meta.DrawNumber,
		DrawDate:     meta.DrawDate,
		Venue:        meta.Venue,
		Prizes:       prizes,
		DownloadLink: meta.DownloadLink,
		LotteryCode:  meta.LotteryCode,
		SourceURL:    sourceURL,
	}, source
}

// ParseMetadata resolves the identifying fields of a draw. Fields that
// cannot be resolved carry their sentinel values.
func (p *Parser) ParseMetadata(doc *goquery.Document, pageText, sourceURL string) Metadata {
	title := FirstOf(types.UnknownTitle,
		p.headingTitle(doc),
		firstText(doc, "title"),
		firstText(doc, "h2"),
		firstText(doc, "h3"),
	)

	meta := Metadata{
		Title: title,
		DrawDate: FirstOf(types.UnknownDate,
			dateIn(title),
			dateIn(pageText),
			p.today(),
		),
		DrawNumber:   FirstOf(types.UnknownDrawNumber, submatch(drawNumberRe, title, 1)),
		LotteryName:  FirstOf(types.UnknownLottery, p.lotteryName(title)),
		LotteryCode:  FirstOf(types.UnknownCode, submatch(titleCodeRe, title, 1)),
		Venue:        FirstOf("", venue(doc)),
		DownloadLink: FirstOf("", downloadLink(doc, sourceURL)),
	}

	if meta.LotteryCode == types.UnknownCode || meta.DrawNumber == types.UnknownDrawNumber {
		if m := slugCodeRe.FindStringSubmatch(sourceURL); m != nil {
			meta.LotteryCode = m[2]
			meta.DrawNumber = m[3]
		}
	}
	if meta.LotteryCode == types.UnknownCode {
		meta.LotteryCode = FirstOf(types.UnknownCode, submatch(textCodeRe, pageText, 1))
	}

	return meta
}

// headingTitle returns the first h1 that is not a generic site heading.
func (p *Parser) headingTitle(doc *goquery.Document) Resolver[string] {
	return func() (string, bool) {
		title := ""
		doc.Find("h1").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := selectionText(s)
			if text != "" && !genericTitles[strings.ToLower(text)] {
				title = text
				return false
			}
			return true
		})
		return title, title != ""
	}
}

func (p *Parser) lotteryName(title string) Resolver[string] {
	return func() (string, bool) {
		m := lotteryNameRe.FindStringSubmatch(title)
		if m == nil {
			return "", false
		}
		name := strings.TrimSpace(m[1])
		return cases.Upper(language.Und).String(name), name != ""
	}
}

// today stamps an undated page with the current date while inside the
// scraping window.
func (p *Parser) today() Resolver[string] {
	return func() (string, bool) {
		now := p.now().In(p.loc)
		if !p.window(now) {
			return "", false
		}
		return now.Format(types.DateLayout), true
	}
}

func firstText(doc *goquery.Document, selector string) Resolver[string] {
	return func() (string, bool) {
		text := selectionText(doc.Find(selector).First())
		return text, text != ""
	}
}

func dateIn(text string) Resolver[string] {
	return func() (string, bool) {
		d, ok := ExtractDate(text)
		if !ok {
			return "", false
		}
		return FormatDate(d), true
	}
}

func submatch(re *regexp.Regexp, text string, group int) Resolver[string] {
	return func() (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil || m[group] == "" {
			return "", false
		}
		return m[group], true
	}
}

// venue returns the value after the first "Venue" or "At" label in the page.
func venue(doc *goquery.Document) Resolver[string] {
	return func() (string, bool) {
		for _, line := range TextLines(doc) {
			m := venueRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if v := strings.TrimSpace(m[1]); v != "" {
				return v, true
			}
		}
		return "", false
	}
}

// downloadLink returns the first link to an official PDF or image, made
// absolute against the page URL.
func downloadLink(doc *goquery.Document, sourceURL string) Resolver[string] {
	return func() (string, bool) {
		link := ""
		doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href := strings.TrimSpace(a.AttrOr("href", ""))
			lower := strings.ToLower(href)
			for _, ext := range downloadExts {
				if strings.HasSuffix(lower, ext) {
					link = absoluteURL(sourceURL, href)
					return false
				}
			}
			return true
		})
		return link, link != ""
	}
}

func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
