package model

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestNewTargetProfile(t *testing.T) {
	t.Parallel()

	t.Run("single word name is rejected", func(t *testing.T) {
		t.Parallel()
		if _, err := NewTargetProfile("Madonna", "", nil); !errors.Is(err, ErrIncompleteName) {
			t.Errorf("expected ErrIncompleteName, got %v", err)
		}
	})

	t.Run("blank name is rejected", func(t *testing.T) {
		t.Parallel()
		if _, err := NewTargetProfile("   ", "", nil); !errors.Is(err, ErrIncompleteName) {
			t.Errorf("expected ErrIncompleteName, got %v", err)
		}
	})

	t.Run("name is title cased and whitespace collapsed", func(t *testing.T) {
		t.Parallel()
		p, err := NewTargetProfile("  jane   doe ", "", nil)
		if err != nil {
			t.Fatal(err)
		}
		if p.Name() != "Jane Doe" {
			t.Errorf("Name() = %q", p.Name())
		}
	})
}

func TestTargetProfileVariations(t *testing.T) {
	t.Parallel()

	t.Run("jane doe carries the required forms", func(t *testing.T) {
		t.Parallel()
		p, err := NewTargetProfile("Jane Doe", "", nil)
		if err != nil {
			t.Fatal(err)
		}
		vars := p.Variations()
		for _, want := range []string{"Jane Doe", "Doe, Jane", "J.Doe", "JDoe", "J. Doe", "Jane_Doe", "Doe Jane"} {
			if !slices.Contains(vars, want) {
				t.Errorf("missing variation %q in %v", want, vars)
			}
		}
		if vars[0] != "Jane Doe" {
			t.Errorf("first variation = %q, want the full name", vars[0])
		}
	})

	t.Run("middle name forms", func(t *testing.T) {
		t.Parallel()
		p, err := NewTargetProfile("Mary Ann Smith", "", nil)
		if err != nil {
			t.Fatal(err)
		}
		vars := p.Variations()
		for _, want := range []string{"Mary Smith", "Mary Ann Smith", "M. Ann Smith", "Smith, Mary"} {
			if !slices.Contains(vars, want) {
				t.Errorf("missing variation %q in %v", want, vars)
			}
		}
	})

	t.Run("organization and keywords come last", func(t *testing.T) {
		t.Parallel()
		p, err := NewTargetProfile("Jane Doe", "Acme Corp", []string{"rocket sled", " "})
		if err != nil {
			t.Fatal(err)
		}
		vars := p.Variations()
		for _, want := range []string{"Jane Doe Acme Corp", "Jane Doe, Acme Corp", "Acme Corp Jane Doe"} {
			if !slices.Contains(vars, want) {
				t.Errorf("missing org variation %q", want)
			}
		}
		if vars[len(vars)-1] != "rocket sled" {
			t.Errorf("last variation = %q, want keyword", vars[len(vars)-1])
		}
		if len(p.Keywords()) != 1 {
			t.Errorf("blank keyword kept: %v", p.Keywords())
		}
	})

	t.Run("variations are case-insensitively unique", func(t *testing.T) {
		t.Parallel()
		p, err := NewTargetProfile("Jane Doe", "", []string{"JANE DOE", "jdoe"})
		if err != nil {
			t.Fatal(err)
		}
		seen := map[string]bool{}
		for _, v := range p.Variations() {
			k := strings.ToLower(v)
			if seen[k] {
				t.Errorf("duplicate variation %q", v)
			}
			seen[k] = true
		}
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		t.Parallel()
		p, err := NewTargetProfile("Jane Doe", "", nil)
		if err != nil {
			t.Fatal(err)
		}
		p.Variations()[0] = "mutated"
		if p.Variations()[0] != "Jane Doe" {
			t.Error("profile was mutated through Variations()")
		}
	})

	t.Run("order is deterministic", func(t *testing.T) {
		t.Parallel()
		a, _ := NewTargetProfile("Jane Doe", "Acme", nil)
		b, _ := NewTargetProfile("Jane Doe", "Acme", nil)
		if !slices.Equal(a.Variations(), b.Variations()) {
			t.Error("variation order differs between identical profiles")
		}
	})
}

func TestMatchRecordJSON(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	rec := NewMatchRecord("https://example.org/a", "Jane Doe", "ctx", Sentiment{Polarity: 0.5, Subjectivity: 0.25}, ts)

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	for _, want := range []string{
		`"timestamp":"2024-05-01T11:00:00Z"`,
		`"url":"https://example.org/a"`,
		`"variation":"Jane Doe"`,
		`"context":"ctx"`,
		`"sentiment":{"polarity":0.5,"subjectivity":0.25}`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %s in %s", want, got)
		}
	}
}
