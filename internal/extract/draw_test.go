// internal/extract/draw_test.go
package extract

import (
	"testing"
	"time"

	"github.com/valpere/klresults/pkg/types"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func fixedParser(window bool) *Parser {
	return NewParser(
		WithLocation(ist),
		WithClock(func() time.Time { return time.Date(2025, 9, 20, 10, 0, 0, 0, time.UTC) }),
		WithScrapeWindow(func(time.Time) bool { return window }),
	)
}

func TestParseMetadataFromTitle(t *testing.T) {
	html := `<html><head><title>Kerala Lottery</title></head><body>
<h1>Kerala Lottery Results</h1>
<h1>Sthree Sakthi (SS) 16.09.2025</h1>
<p>Venue: Gorky Bhavan, Near Bakery Junction, Thiruvananthapuram</p>
<a href="/about">About</a>
<a href="/files/ss-485.PDF">Download</a>
</body></html>`

	meta := fixedParser(true).ParseMetadata(mustDoc(t, html), html, "https://www.kllotteryresult.com/kerala-lottery-result-ss-485/")

	if meta.Title != "Sthree Sakthi (SS) 16.09.2025" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.LotteryName != "STHREE SAKTHI" {
		t.Errorf("LotteryName = %q", meta.LotteryName)
	}
	if meta.LotteryCode != "SS" {
		t.Errorf("LotteryCode = %q", meta.LotteryCode)
	}
	if meta.DrawNumber != "SS" {
		t.Errorf("DrawNumber = %q", meta.DrawNumber)
	}
	if meta.DrawDate != "2025-09-16" {
		t.Errorf("DrawDate = %q", meta.DrawDate)
	}
	if meta.Venue != "Gorky Bhavan, Near Bakery Junction, Thiruvananthapuram" {
		t.Errorf("Venue = %q", meta.Venue)
	}
	if meta.DownloadLink != "https://www.kllotteryresult.com/files/ss-485.PDF" {
		t.Errorf("DownloadLink = %q", meta.DownloadLink)
	}
}

func TestParseMetadataCodeFromURL(t *testing.T) {
	html := `<html><head><title>Karunya Plus (KN-589) Result</title></head><body>
<p>Draw held on 18/09/2025</p></body></html>`

	meta := fixedParser(true).ParseMetadata(mustDoc(t, html), html, "https://www.kllotteryresult.com/kerala-lottery-result-KN-589/")

	if meta.LotteryName != "KARUNYA PLUS" {
		t.Errorf("LotteryName = %q", meta.LotteryName)
	}
	if meta.LotteryCode != "KN" || meta.DrawNumber != "589" {
		t.Errorf("code/draw = %q/%q, want KN/589", meta.LotteryCode, meta.DrawNumber)
	}
	if meta.DrawDate != "2025-09-18" {
		t.Errorf("DrawDate = %q, want date from page text", meta.DrawDate)
	}
	if meta.Venue != "" || meta.DownloadLink != "" {
		t.Errorf("expected empty venue and link, got %q %q", meta.Venue, meta.DownloadLink)
	}
}

func TestParseMetadataCodeFromTicket(t *testing.T) {
	html := `<html><body><h2>Weekly draw</h2><p>1st Prize</p><p>DD 781756</p></body></html>`

	meta := fixedParser(true).ParseMetadata(mustDoc(t, html), html, "https://www.kllotteryresult.com/kerala-lottery-result-today/")

	if meta.Title != "Weekly draw" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.LotteryCode != "DD" {
		t.Errorf("LotteryCode = %q, want DD", meta.LotteryCode)
	}
	if meta.DrawNumber != types.UnknownDrawNumber {
		t.Errorf("DrawNumber = %q", meta.DrawNumber)
	}
	if meta.LotteryName != types.UnknownLottery {
		t.Errorf("LotteryName = %q", meta.LotteryName)
	}
	// 10:00 UTC on the 20th is 15:30 IST on the 20th.
	if meta.DrawDate != "2025-09-20" {
		t.Errorf("DrawDate = %q, want today in IST", meta.DrawDate)
	}
}

func TestParseMetadataSentinels(t *testing.T) {
	html := `<html><body><p>nothing here</p></body></html>`

	meta := fixedParser(false).ParseMetadata(mustDoc(t, html), html, "https://example.com/page")

	if meta.Title != types.UnknownTitle {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.DrawDate != types.UnknownDate {
		t.Errorf("DrawDate = %q", meta.DrawDate)
	}
	if meta.LotteryCode != types.UnknownCode || meta.DrawNumber != types.UnknownDrawNumber {
		t.Errorf("code/draw = %q/%q", meta.LotteryCode, meta.DrawNumber)
	}
}

func TestParsePageBuildsRecord(t *testing.T) {
	html := `<html><head><title>Bhagyathara (BT-19) 15-09-2025</title></head><body>
<table class="w-full">
<tr><th>1st Prize</th></tr><tr><td>BA 123456</td></tr>
</table></body></html>`

	rec, source, err := fixedParser(true).ParsePage(html, "https://www.kllotteryresult.com/kerala-lottery-result-BT-19/")
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}
	if source != SourceTable {
		t.Errorf("source = %s", source)
	}
	if rec.FileName() != "BT-19-2025-09-15.json" {
		t.Errorf("FileName() = %q", rec.FileName())
	}
	if rec.LotteryName != "BHAGYATHARA" {
		t.Errorf("LotteryName = %q", rec.LotteryName)
	}
	if !rec.HasActualResults() {
		t.Error("record should have actual results")
	}
	if len(rec.Prizes) != 1 {
		t.Errorf("expected one detected category, got %v", rec.Prizes.Keys())
	}
}

func TestParsePagePlainTextBody(t *testing.T) {
	body := "Title: Sthree Sakthi Lottery Result\n\nDraw Date: 16-09-2025\n\n1st Prize Rs :10000000/-\nSS 123456\n2nd Prize\nSA 654321\n"

	rec, source, err := fixedParser(true).ParsePage(body, "https://www.kllotteryresult.com/kerala-lottery-result-SS-485/")
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}
	if source != SourcePlainText {
		t.Errorf("source = %s", source)
	}
	if rec.DrawDate != "2025-09-16" || rec.LotteryCode != "SS" || rec.DrawNumber != "485" {
		t.Errorf("unexpected record %+v", rec)
	}
	second, _ := rec.Prizes.Get("2nd_prize")
	if len(second.Winners) != 1 || second.Winners[0] != "SA 654321" {
		t.Errorf("2nd prize winners = %v", second.Winners)
	}
}
