package model

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrIncompleteName is returned when the target name lacks a first or last name.
var ErrIncompleteName = errors.New("target name must contain at least a first and a last name")

// TargetProfile is the identity being searched for.
// It is built once from operator input and is read-only afterwards; the
// variation list is derived at construction time.
type TargetProfile struct {
	name         string
	first        string
	middle       string
	last         string
	organization string
	keywords     []string
	variations   []string
}

// NewTargetProfile builds a profile from a full name, an optional
// organization and optional extra keywords.
func NewTargetProfile(name, organization string, keywords []string) (*TargetProfile, error) {
	title := cases.Title(language.Und)
	words := strings.Fields(name)
	if len(words) < 2 {
		return nil, ErrIncompleteName
	}
	for i, w := range words {
		words[i] = title.String(w)
	}

	p := &TargetProfile{
		name:         strings.Join(words, " "),
		first:        words[0],
		last:         words[len(words)-1],
		middle:       strings.Join(words[1:len(words)-1], " "),
		organization: strings.Join(strings.Fields(organization), " "),
	}
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			p.keywords = append(p.keywords, k)
		}
	}
	p.variations = p.deriveVariations()
	return p, nil
}

// Name returns the canonical, title-cased name.
func (p *TargetProfile) Name() string { return p.name }

// Organization returns the organization, or "".
func (p *TargetProfile) Organization() string { return p.organization }

// Keywords returns a copy of the extra keywords.
func (p *TargetProfile) Keywords() []string { return append([]string(nil), p.keywords...) }

// Variations returns a copy of the ordered variation list.
// Matching walks this list in order and stops at the first hit, so the
// order is part of the contract: full forms come before initials, and
// keywords come last.
func (p *TargetProfile) Variations() []string {
	return append([]string(nil), p.variations...)
}

func (p *TargetProfile) deriveVariations() []string {
	f, m, l := p.first, p.middle, p.last
	fi := string([]rune(f)[0])

	forms := []string{
		f + " " + l,
		l + ", " + f,
	}
	if m != "" {
		forms = append(forms, f+" "+m+" "+l)
	}
	forms = append(forms, fi+". "+l)
	if m != "" {
		forms = append(forms, fi+". "+m+" "+l)
	}
	forms = append(forms,
		// handle and email-local-part styles
		fi+"."+l,
		fi+l,
		f+"."+l,
		f+"_"+l,
		f+"-"+l,
		l+"_"+f,
		l+"."+f,
		f+l,
		f+" "+string([]rune(l)[0]),
		l+" "+f,
	)
	if o := p.organization; o != "" {
		forms = append(forms,
			f+" "+l+" "+o,
			f+" "+l+", "+o,
			o+" "+f+" "+l,
		)
	}
	forms = append(forms, p.keywords...)

	seen := make(map[string]struct{}, len(forms))
	out := make([]string, 0, len(forms))
	for _, v := range forms {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
