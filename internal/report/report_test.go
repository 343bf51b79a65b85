package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"smartmoney-collector/internal/domain"
)

func summaryFixture() *Summary {
	run := &domain.RunRecord{
		RunID:          "run-test",
		StartedAt:      1_700_000_000_000,
		FinishedAt:     1_700_000_060_000,
		Phase:          domain.PhaseDone,
		Fetched:        10,
		Normalized:     9,
		Skipped:        1,
		Enriched:       9,
		Admitted:       5,
		Rejected:       4,
		Signals:        3,
		BuySignals:     2,
		SellSignals:    1,
		RecoveredError: "score ethereum/0xbad: no admitted events",
	}
	signals := []*domain.Signal{
		{SignalID: "s1", Chain: "ethereum", TokenAddress: "0xa", TokenSymbol: "AAA",
			DominantWallet: "0xfund", Score: 0.89, Direction: domain.DirectionBuy,
			Candidate: true, Reason: "usd_notional,labels"},
		{SignalID: "s2", Chain: "ethereum", TokenAddress: "0xb", TokenSymbol: "BBB",
			Score: 0.70, Direction: domain.DirectionBuy, Candidate: true, Reason: "usd_notional"},
		{SignalID: "s3", Chain: "ethereum", TokenAddress: "0xc", TokenSymbol: "CCC",
			Score: 0.40, Direction: domain.DirectionSell, Reason: "usd_notional"},
	}
	rejections := map[string]int{"cooldown_active": 3, "untradable": 1}
	return Build(run, signals, rejections, 3)
}

func TestBuild(t *testing.T) {
	s := summaryFixture()

	if s.Candidates != 2 {
		t.Errorf("expected 2 candidates, got %d", s.Candidates)
	}
	if len(s.TopBuys) != 2 || s.TopBuys[0].TokenSymbol != "AAA" {
		t.Errorf("expected AAA as top buy, got %+v", s.TopBuys)
	}
	if len(s.TopSells) != 1 || s.TopSells[0].TokenSymbol != "CCC" {
		t.Errorf("expected CCC as top sell, got %+v", s.TopSells)
	}
	if len(s.RecoveredErrors) != 1 {
		t.Errorf("expected 1 recovered error, got %v", s.RecoveredErrors)
	}
}

func TestBuild_TopNBound(t *testing.T) {
	var signals []*domain.Signal
	for i := 0; i < 5; i++ {
		signals = append(signals, &domain.Signal{
			SignalID:     string(rune('a' + i)),
			Chain:        "ethereum",
			TokenAddress: "0x" + string(rune('a'+i)),
			Score:        0.5 + float64(i)*0.05,
			Direction:    domain.DirectionBuy,
		})
	}
	s := Build(&domain.RunRecord{RunID: "run"}, signals, nil, 3)
	if len(s.TopBuys) != 3 {
		t.Fatalf("expected top 3, got %d", len(s.TopBuys))
	}
	if s.TopBuys[0].Score < s.TopBuys[2].Score {
		t.Error("top buys should be sorted by score DESC")
	}
}

func TestRenderMarkdown(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Berlin")
	md := RenderMarkdown(summaryFixture(), loc)

	for _, want := range []string{
		"# Smart-Money Run Report",
		"| Fetched | 10 |",
		"| Skipped (malformed) | 1 |",
		"| cooldown_active | 3 |",
		"## Signals: 2 buy / 1 sell",
		"| AAA | ethereum | 0.8900 | 0xfund | usd_notional,labels |",
		"local)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	s := summaryFixture()

	mdPath, jsonPath, err := WriteFiles(dir, s, time.UTC)
	if err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}
	if filepath.Base(mdPath) != "run-test.md" || filepath.Base(jsonPath) != "run-test.json" {
		t.Errorf("unexpected file names: %s, %s", mdPath, jsonPath)
	}

	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read json report: %v", err)
	}
	var decoded Summary
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("json report is not valid json: %v", err)
	}
	if decoded.RunID != "run-test" || decoded.Signals != 3 {
		t.Errorf("json roundtrip lost data: %+v", decoded)
	}
}
