// pkg/types/types.go
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Sentinel values used when a field cannot be resolved from a page.
const (
	UnknownLottery    = "Unknown"
	UnknownDrawNumber = "XX"
	UnknownCode       = "XX"
	UnknownDate       = "Unknown-Date"
	UnknownTitle      = "Unknown Lottery"
)

// PlaceholderWinner is stored in a prize category whose winners are not published yet.
const PlaceholderWinner = "Please wait, results will be published at 3 PM."

// maskedWinner is how the site renders a winner slot that is not filled in yet.
const maskedWinner = "***"

// DateLayout is the layout of DrawRecord.DrawDate.
const DateLayout = "2006-01-02"

// IsRealWinner reports whether w is an actual ticket rather than a placeholder.
func IsRealWinner(w string) bool {
	return w != PlaceholderWinner && w != maskedWinner && w != ""
}

// CandidateLink is a result page URL paired with the draw date found on it.
type CandidateLink struct {
	URL  string    `json:"url"`
	Date time.Time `json:"date"`
}

// PrizeCategory holds the reference amount, label and winning tickets of one prize tier.
type PrizeCategory struct {
	Amount  int      `json:"amount"`
	Label   string   `json:"label"`
	Winners []string `json:"winners"`
}

// PrizeEntry binds a category key (for example "1st_prize") to its contents.
type PrizeEntry struct {
	Key      string
	Category PrizeCategory
}

// Prizes is an ordered prize mapping. It marshals to a JSON object whose
// keys keep the slice order.
type Prizes []PrizeEntry

// Get returns the category stored under key.
func (p Prizes) Get(key string) (*PrizeCategory, bool) {
	for i := range p {
		if p[i].Key == key {
			return &p[i].Category, true
		}
	}
	return nil, false
}

// Keys returns the category keys in order.
func (p Prizes) Keys() []string {
	keys := make([]string, len(p))
	for i, e := range p {
		keys[i] = e.Key
	}
	return keys
}

// HasRealWinners reports whether any category holds a real ticket.
func (p Prizes) HasRealWinners() bool {
	for _, e := range p {
		for _, w := range e.Category.Winners {
			if IsRealWinner(w) {
				return true
			}
		}
	}
	return false
}

// MarshalJSON implements json.Marshaler.
func (p Prizes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		winners := e.Category.Winners
		if winners == nil {
			winners = []string{}
		}
		var val bytes.Buffer
		enc := json.NewEncoder(&val)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(PrizeCategory{Amount: e.Category.Amount, Label: e.Category.Label, Winners: winners}); err != nil {
			return nil, err
		}
		buf.Write(bytes.TrimRight(val.Bytes(), "\n"))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping the key order of the input.
func (p *Prizes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("prizes: expected object, got %v", tok)
	}

	var out Prizes
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("prizes: expected key, got %v", tok)
		}
		var cat PrizeCategory
		if err := dec.Decode(&cat); err != nil {
			return fmt.Errorf("prizes: category %q: %w", key, err)
		}
		out = append(out, PrizeEntry{Key: key, Category: cat})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*p = out
	return nil
}

// DrawRecord is the normalized result of one lottery draw.
type DrawRecord struct {
	LotteryName  string `json:"lottery_name"`
	DrawNumber   string `json:"draw_number"`
	DrawDate     string `json:"draw_date"`
	Venue        string `json:"venue"`
	Prizes       Prizes `json:"prizes"`
	DownloadLink string `json:"downloadLink"`

	// LotteryCode names the output file; it is not part of the document.
	LotteryCode string `json:"-"`
	SourceURL   string `json:"-"`
}

// FileName returns "<code>-<drawNumber>-<drawDate>.json". Path separators
// in the parts are replaced so the name never leaves the output directory.
func (r *DrawRecord) FileName() string {
	return fmt.Sprintf("%s-%s-%s.json",
		fileNamePart.Replace(r.LotteryCode), fileNamePart.Replace(r.DrawNumber), fileNamePart.Replace(r.DrawDate))
}

var fileNamePart = strings.NewReplacer("/", "-", "\\", "-")

// HasActualResults reports whether the record carries published winners.
func (r *DrawRecord) HasActualResults() bool {
	return r.Prizes.HasRealWinners()
}

// PageStatus is the outcome of processing one result page.
type PageStatus string

const (
	PageWritten PageStatus = "written"
	PageFailed  PageStatus = "failed"
)
