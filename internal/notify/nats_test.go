// internal/notify/nats_test.go
package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/valpere/klresults/pkg/types"
)

func TestNewDrawEvent(t *testing.T) {
	rec := &types.DrawRecord{
		LotteryName: "KARUNYA",
		LotteryCode: "KR",
		DrawNumber:  "721",
		DrawDate:    "2025-09-20",
		SourceURL:   "https://www.kllotteryresult.com/kerala-lottery-result-kr-721",
		Prizes: types.Prizes{
			{Key: "1st_prize", Category: types.PrizeCategory{Winners: []string{"KA 123456"}}},
		},
	}
	at := time.Date(2025, 9, 20, 10, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))

	ev := NewDrawEvent(rec, "KR-721-2025-09-20.json", at)
	if ev.FileName != "KR-721-2025-09-20.json" || ev.LotteryCode != "KR" || !ev.HasResults {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.WrittenAt.Location() != time.UTC || ev.WrittenAt.Hour() != 4 {
		t.Errorf("WrittenAt = %v", ev.WrittenAt)
	}
}

func TestMessage(t *testing.T) {
	msg, err := Message(context.Background(), DefaultSubject, DrawEvent{FileName: "a.json", DrawDate: "2025-09-20"})
	if err != nil {
		t.Fatalf("Message failed: %v", err)
	}
	if msg.Subject != DefaultSubject {
		t.Errorf("subject = %q", msg.Subject)
	}

	var decoded DrawEvent
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.FileName != "a.json" || decoded.DrawDate != "2025-09-20" {
		t.Errorf("decoded %+v", decoded)
	}
}

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*headerCarrier)(msg)

	if got := carrier.Get("traceparent"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if keys := carrier.Keys(); keys != nil {
		t.Fatalf("expected nil keys, got %v", keys)
	}

	carrier.Set("traceparent", "00-abc-def-01")
	if got := carrier.Get("traceparent"); got != "00-abc-def-01" {
		t.Errorf("got %q", got)
	}
	if len(carrier.Keys()) != 1 {
		t.Errorf("keys = %v", carrier.Keys())
	}
}

func TestPublisherDefaults(t *testing.T) {
	p := NewPublisher(nil, "")
	if p.Subject() != DefaultSubject || p.Name() != "nats" {
		t.Errorf("unexpected publisher %q/%q", p.Name(), p.Subject())
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close on nil connection: %v", err)
	}
	if _, err := Connect("", ""); err == nil {
		t.Error("expected error for empty url")
	}
}
