package memstore

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"tradelens/config"
	"tradelens/internal/adapter/artifact"
	"tradelens/internal/domain"
)

func writeArtifacts(t *testing.T) config.Paths {
	t.Helper()
	dir := t.TempDir()
	p := config.Paths{
		NAICSProducts: filepath.Join(dir, "naics_products.json"),
		TradeDeficit:  filepath.Join(dir, "trade_deficit.json"),
		ChinaIndex:    filepath.Join(dir, "china_index.json"),
		DefenseIndex:  filepath.Join(dir, "defense_index.json"),
		NAICSNames:    filepath.Join(dir, "naics_names.csv"),
	}

	concordance := map[string]domain.NAICSProducts{
		"311111": {
			Exports: []domain.Product{{HS10: "2309101000", HS6: "230910"}},
		},
		"311119": {
			Imports: []domain.Product{{HS10: "2309109000", HS6: "230910"}},
		},
	}
	trade := map[string]*domain.TradeRecord{
		"230910": {
			ExportValue: map[string]int64{"CANADA": 10},
			ImportValue: map[string]int64{"CHINA": 30},
			Deficit:     map[string]int64{"CANADA": -10, "CHINA": 30},
		},
	}
	china := domain.ChinaIndex{"230910": 30}
	defense := map[string]domain.DefenseScore{
		"230910": {HS6: "230910", Description: "Dog or cat food", Score: 1, Reasoning: "pet food"},
	}

	for path, v := range map[string]any{
		p.NAICSProducts: concordance,
		p.TradeDeficit:  trade,
		p.ChinaIndex:    china,
		p.DefenseIndex:  defense,
	} {
		if err := artifact.SaveJSON(path, v); err != nil {
			t.Fatal(err)
		}
	}

	names := "2022 NAICS Code,2022 NAICS Title\n311111,Dog and Cat Food Manufacturing\n311119,Other Animal Food Manufacturing\n"
	if err := os.WriteFile(p.NAICSNames, []byte(names), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad(t *testing.T) {
	s, err := Load(writeArtifacts(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(s.Trade) != 1 || s.Trade["230910"].Deficit["CHINA"] != 30 {
		t.Errorf("unexpected trade data: %+v", s.Trade)
	}
	if s.China["230910"] != 30 {
		t.Errorf("unexpected China index: %+v", s.China)
	}
	if s.NAICSNames["311119"] != "Other Animal Food Manufacturing" {
		t.Errorf("unexpected names: %+v", s.NAICSNames)
	}
}

func TestLoad_MissingArtifactFails(t *testing.T) {
	p := writeArtifacts(t)
	if err := os.Remove(p.DefenseIndex); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(p); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}

func TestReverseLookups(t *testing.T) {
	s, err := Load(writeArtifacts(t))
	if err != nil {
		t.Fatal(err)
	}

	// Both industries reference the HS6, from opposite sides; the
	// lookup is deduplicated and sorted.
	want := []string{"311111", "311119"}
	if !reflect.DeepEqual(s.HS6ToNAICS["230910"], want) {
		t.Errorf("expected %v, got %v", want, s.HS6ToNAICS["230910"])
	}

	if got := s.Description("230910"); got != "Dog or cat food" {
		t.Errorf("unexpected description: %q", got)
	}
	if got := s.Description("999999"); got != "" {
		t.Errorf("unknown code should resolve to empty description, got %q", got)
	}
	if got := s.DefenseScoreFor("230910"); got != 1 {
		t.Errorf("unexpected score: %d", got)
	}
	if got := s.DefenseScoreFor("999999"); got != 0 {
		t.Errorf("unscored code should resolve to 0, got %d", got)
	}
}
