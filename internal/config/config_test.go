package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/adaptive-cat/internal/stopping"
)

func studyWithDims(ids ...string) Study {
	s := Default()
	for _, id := range ids {
		s.Dimensions = append(s.Dimensions, Dimension{ID: id, Name: id})
	}
	return s
}

func TestValidateRequiresDimensions(t *testing.T) {
	s := Default()
	if err := s.Validate(); err == nil {
		t.Fatal("study with no dimensions should fail validation")
	}
	if err := studyWithDims("extraversion").Validate(); err != nil {
		t.Fatalf("valid study rejected: %v", err)
	}
}

func TestValidateRejectsDuplicateDimensionIDs(t *testing.T) {
	if err := studyWithDims("a", "b", "a").Validate(); err == nil {
		t.Fatal("duplicate dimension ids should fail validation")
	}
}

func TestValidateRejectsBadOverride(t *testing.T) {
	s := studyWithDims("a")
	s.Dimensions[0].Stopping = &stopping.Config{MinItems: 5, MaxItems: 2, MinSEM: 0.3}
	if err := s.Validate(); err == nil {
		t.Fatal("invalid per-dimension override should fail validation")
	}
}

func TestOverrideResolution(t *testing.T) {
	s := studyWithDims("a", "b")
	override := stopping.Config{MinItems: 4, MaxItems: 12, MinSEM: 0.25}
	s.Dimensions[1].Stopping = &override

	if got := s.StoppingFor("a"); got != s.Stopping {
		t.Fatalf("dimension a should use study defaults, got %+v", got)
	}
	if got := s.StoppingFor("b"); got != override {
		t.Fatalf("dimension b should use its override, got %+v", got)
	}
}

func TestLoadYAML(t *testing.T) {
	doc := `
name: hilfo-pilot
stopping:
  min_items: 3
  max_items: 9
  min_sem: 0.4
dimensions:
  - id: prog_anxiety
    name: Programming Anxiety
  - id: bfi_extraversion
    name: Extraversion
    stopping:
      min_items: 2
      max_items: 6
      min_sem: 0.5
`
	path := filepath.Join(t.TempDir(), "study.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "hilfo-pilot" {
		t.Fatalf("name not parsed: %q", s.Name)
	}
	if len(s.Dimensions) != 2 {
		t.Fatalf("expected 2 dimensions, got %d", len(s.Dimensions))
	}
	if s.Stopping.MaxItems != 9 {
		t.Fatalf("stopping override not parsed: %+v", s.Stopping)
	}
	// Omitted sections keep defaults.
	if s.Estimation.QuadPoints != Default().Estimation.QuadPoints {
		t.Fatalf("estimation defaults lost: %+v", s.Estimation)
	}
	if got := s.StoppingFor("bfi_extraversion"); got.MaxItems != 6 {
		t.Fatalf("per-dimension stopping not applied: %+v", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	doc := `
stopping:
  min_items: 0
dimensions:
  - id: a
`
	path := filepath.Join(t.TempDir(), "study.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("invalid config should fail to load")
	}
}
