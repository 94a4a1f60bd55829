package config

import (
	"os"
	"path/filepath"
	"testing"

	"lobengine/internal/execution"
)

func writeTestConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTestConfig(t, "book:\n  current_symbol: BTCUSD\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analytics.FlowWindowSeconds != 60 {
		t.Errorf("FlowWindowSeconds = %d, want default 60", cfg.Analytics.FlowWindowSeconds)
	}
	if cfg.Analytics.MaxWindows != 60 {
		t.Errorf("MaxWindows = %d, want default 60", cfg.Analytics.MaxWindows)
	}
	if cfg.Calibrator.MinParticipationRate != 1e-4 {
		t.Errorf("MinParticipationRate = %v, want default 1e-4", cfg.Calibrator.MinParticipationRate)
	}
	if cfg.Book.CurrentSymbol != "BTCUSD" {
		t.Errorf("CurrentSymbol = %q, want BTCUSD", cfg.Book.CurrentSymbol)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeTestConfig(t, "book:\n  maker_fee_rate: 0.001\n")
	t.Setenv("LOB_BOOK_MAKER_FEE_RATE", "0.005")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Book.MakerFeeRate != 0.005 {
		t.Errorf("MakerFeeRate = %v, want env override 0.005", cfg.Book.MakerFeeRate)
	}
}

func TestResolvedProfileMapsNamesToEnum(t *testing.T) {
	cases := map[string]execution.Profile{
		"u_shaped":           execution.ProfileUShaped,
		"morning_weighted":   execution.ProfileMorningWeighted,
		"afternoon_weighted": execution.ProfileAfternoonWeighted,
		"custom":             execution.ProfileCustom,
		"":                   execution.ProfileUniform,
		"unknown":            execution.ProfileUniform,
	}
	for name, want := range cases {
		c := VolumeWeightedConfig{Profile: name}
		if got := c.ResolvedProfile(); got != want {
			t.Errorf("ResolvedProfile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestValidateRejectsOutOfRangeParticipationRate(t *testing.T) {
	cfg := Config{}
	cfg.VolumeWeighted.ParticipationRate = 0.9
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate to reject participation_rate outside [0.01, 0.5]")
	}
}

func TestValidateAcceptsZeroParticipationRateAsUnset(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate on zero-value Config = %v, want nil", err)
	}
}
