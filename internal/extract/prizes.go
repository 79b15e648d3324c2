// internal/extract/prizes.go
package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/klresults/pkg/types"
)

var ticketRe = regexp.MustCompile(`[A-Z]{1,3}\s*\d{4,6}|\b\d{4,6}\b`)

// PrizeSource names the strategy that produced a prize mapping.
type PrizeSource string

const (
	SourceTable     PrizeSource = "table"
	SourcePlainText PrizeSource = "plaintext"
	SourceNone      PrizeSource = "none"
)

// ExtractPrizes converts a result page into the canonical prize mapping.
// The results table is read first; when it is missing or carries no
// winners, the page text is scanned for prize headings instead.
func ExtractPrizes(doc *goquery.Document) (types.Prizes, PrizeSource) {
	prizes := prizesFromTable(doc)
	source := SourceTable
	if totalWinners(prizes) == 0 {
		if parsed := PrizesFromLines(TextLines(doc)); len(parsed) > 0 {
			prizes = parsed
			source = SourcePlainText
		}
	}
	if len(prizes) == 0 {
		source = SourceNone
	}
	return ApplyPlaceholders(prizes), source
}

// prizesFromTable reads the results table. A row with a header cell naming
// a category opens it; data cells append winners to the open category.
func prizesFromTable(doc *goquery.Document) types.Prizes {
	table := findResultTable(doc)
	if table == nil {
		return nil
	}

	var prizes types.Prizes
	current := ""
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if th := row.Find("th").First(); th.Length() > 0 {
			if cat, ok := MatchLabel(selectionText(th)); ok {
				current = cat.Key
				prizes = setCategory(prizes, cat)
			}
		}
		if current == "" {
			return
		}
		cat, _ := prizes.Get(current)
		row.Find("td").Each(func(_ int, td *goquery.Selection) {
			if text := selectionText(td); text != "" {
				cat.Winners = append(cat.Winners, text)
			}
		})
	})
	return prizes
}

// findResultTable prefers table.w-full and otherwise takes the first table
// whose header cells name a prize category.
func findResultTable(doc *goquery.Document) *goquery.Selection {
	if t := doc.Find("table.w-full").First(); t.Length() > 0 {
		return t
	}
	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		t.Find("th").EachWithBreak(func(_ int, th *goquery.Selection) bool {
			if _, ok := MatchLabel(selectionText(th)); ok {
				found = t
			}
			return found == nil
		})
		return found == nil
	})
	return found
}

// PrizesFromLines scans text lines for prize headings and collects the
// ticket tokens that follow each heading.
func PrizesFromLines(lines []string) types.Prizes {
	var prizes types.Prizes
	current := ""
	for _, raw := range lines {
		ln := NormalizeLine(raw)
		if ln == "" {
			continue
		}
		if cat, ok := MatchHeaderLine(ln); ok {
			current = cat.Key
			if _, exists := prizes.Get(cat.Key); !exists {
				prizes = append(prizes, types.PrizeEntry{Key: cat.Key, Category: cat.empty()})
			}
			continue
		}
		if current == "" || ln == "**" || ln == "..." {
			continue
		}
		cat, _ := prizes.Get(current)
		for _, tok := range ticketRe.FindAllString(ln, -1) {
			cat.Winners = append(cat.Winners, strings.TrimSpace(tok))
		}
	}
	return prizes
}

// ApplyPlaceholders fills categories that have no published winners and
// returns the mapping in ranking order.
//
//   - no categories: every category with the placeholder
//   - no real winner anywhere: every category reset to the placeholder
//   - otherwise: empty categories get the placeholder
func ApplyPlaceholders(prizes types.Prizes) types.Prizes {
	if len(prizes) == 0 {
		out := make(types.Prizes, 0, len(Categories))
		for _, c := range Categories {
			pc := c.empty()
			pc.Winners = []string{types.PlaceholderWinner}
			out = append(out, types.PrizeEntry{Key: c.Key, Category: pc})
		}
		return out
	}

	out := make(types.Prizes, len(prizes))
	copy(out, prizes)
	hasReal := out.HasRealWinners()
	for i := range out {
		if !hasReal || len(out[i].Category.Winners) == 0 {
			out[i].Category.Winners = []string{types.PlaceholderWinner}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return rank(out[i].Key) < rank(out[j].Key) })
	return out
}

func setCategory(prizes types.Prizes, cat Category) types.Prizes {
	for i := range prizes {
		if prizes[i].Key == cat.Key {
			prizes[i].Category = cat.empty()
			return prizes
		}
	}
	return append(prizes, types.PrizeEntry{Key: cat.Key, Category: cat.empty()})
}

func totalWinners(prizes types.Prizes) int {
	n := 0
	for _, e := range prizes {
		n += len(e.Category.Winners)
	}
	return n
}
