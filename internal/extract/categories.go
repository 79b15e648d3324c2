// internal/extract/categories.go
package extract

import (
	"regexp"
	"strings"

	"github.com/valpere/klresults/pkg/types"
)

// Category is one prize tier of a draw.
type Category struct {
	Key     string
	Label   string
	Amount  int
	Aliases []string
	header  *regexp.Regexp
}

// Categories lists every prize tier in ranking order. The set is closed:
// extraction never produces a key outside it.
var Categories = []Category{
	{Key: "1st_prize", Label: "1st Prize", Amount: 10000000,
		Aliases: []string{"1st", "1st Prize"}, header: regexp.MustCompile(`(?i)^1st Prize`)},
	{Key: "consolation_prize", Label: "Consolation Prize", Amount: 5000,
		Aliases: []string{"Cons", "Cons Prize", "Cons Prize-Rs", "Consolation", "Consolation Prize"},
		header:  regexp.MustCompile(`(?i)^Cons(olation)? Prize`)},
	{Key: "2nd_prize", Label: "2nd Prize", Amount: 3000000,
		Aliases: []string{"2nd", "2nd Prize"}, header: regexp.MustCompile(`(?i)^2nd Prize`)},
	{Key: "3rd_prize", Label: "3rd Prize", Amount: 500000,
		Aliases: []string{"3rd", "3rd Prize"}, header: regexp.MustCompile(`(?i)^3rd Prize`)},
	{Key: "4th_prize", Label: "4th Prize", Amount: 5000,
		Aliases: []string{"4th", "4th Prize"}, header: regexp.MustCompile(`(?i)^4th Prize`)},
	{Key: "5th_prize", Label: "5th Prize", Amount: 2000,
		Aliases: []string{"5th", "5th Prize"}, header: regexp.MustCompile(`(?i)^5th Prize`)},
	{Key: "6th_prize", Label: "6th Prize", Amount: 1000,
		Aliases: []string{"6th", "6th Prize"}, header: regexp.MustCompile(`(?i)^6th Prize`)},
	{Key: "7th_prize", Label: "7th Prize", Amount: 500,
		Aliases: []string{"7th", "7th Prize"}, header: regexp.MustCompile(`(?i)^7th Prize`)},
	{Key: "8th_prize", Label: "8th Prize", Amount: 200,
		Aliases: []string{"8th", "8th Prize"}, header: regexp.MustCompile(`(?i)^8th Prize`)},
	{Key: "9th_prize", Label: "9th Prize", Amount: 100,
		Aliases: []string{"9th", "9th Prize"}, header: regexp.MustCompile(`(?i)^9th Prize`)},
}

// MatchLabel finds the category whose alias occurs in a table header.
func MatchLabel(label string) (Category, bool) {
	for _, c := range Categories {
		for _, alias := range c.Aliases {
			if strings.Contains(label, alias) {
				return c, true
			}
		}
	}
	return Category{}, false
}

// MatchHeaderLine finds the category whose heading starts a text line.
func MatchHeaderLine(line string) (Category, bool) {
	for _, c := range Categories {
		if c.header.MatchString(line) {
			return c, true
		}
	}
	return Category{}, false
}

// rank returns the position of key in Categories.
func rank(key string) int {
	for i, c := range Categories {
		if c.Key == key {
			return i
		}
	}
	return len(Categories)
}

func (c Category) empty() types.PrizeCategory {
	return types.PrizeCategory{Amount: c.Amount, Label: c.Label, Winners: []string{}}
}
