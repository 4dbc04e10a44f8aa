// Package conflict decides whether a proposed agreement exception overlaps
// exceptions that already exist for the same agreement.
//
// A brand or diameter left unset means "every brand" or "every diameter", so a
// proposed selection is expanded into (brand, diameter) combinations and each
// combination is checked against every active rule. Everything here is pure:
// the same inputs always give the same output.
package conflict

// ExceptionRule is the part of a stored exception that takes part in overlap checks.
type ExceptionRule struct {
	ID       int64
	Brand    Value[int64]
	Diameter Value[string]
	Active   bool
}

// Selection is the brand and diameter choice of an exception being created or edited.
// Empty BrandIDs or Diameters mean Any on that side.
type Selection struct {
	BrandIDs  []int64
	Diameters []string
	// ExcludeRuleID is the id of the rule being edited, which cannot conflict
	// with itself.
	ExcludeRuleID *int64
}

// Combination is one concrete-or-wildcard (brand, diameter) pair of a Selection.
type Combination struct {
	Brand    Value[int64]
	Diameter Value[string]
}

// Overlaps reports whether the combination and the rule cover a common
// (brand, diameter) pair.
func (c Combination) Overlaps(r ExceptionRule) bool {
	return c.Brand.Overlaps(r.Brand) && c.Diameter.Overlaps(r.Diameter)
}

// Conflict pairs a proposed combination with the existing rule it overlaps.
type Conflict struct {
	Combination Combination
	Rule        ExceptionRule
}

// Expand returns the combinations covered by s. Duplicate brands or diameters
// are collapsed; diameters are trimmed and blank ones count as Any.
func Expand(s Selection) []Combination {
	brands := make([]Value[int64], 0, len(s.BrandIDs))
	seenBrand := make(map[int64]struct{}, len(s.BrandIDs))
	for _, id := range s.BrandIDs {
		if _, ok := seenBrand[id]; ok {
			continue
		}
		seenBrand[id] = struct{}{}
		brands = append(brands, Of(id))
	}
	if len(brands) == 0 {
		brands = append(brands, Any[int64]())
	}

	diameters := make([]Value[string], 0, len(s.Diameters))
	seenDiameter := make(map[Value[string]]struct{}, len(s.Diameters))
	for _, d := range s.Diameters {
		v := DiameterOf(d)
		if _, ok := seenDiameter[v]; ok {
			continue
		}
		seenDiameter[v] = struct{}{}
		diameters = append(diameters, v)
	}
	if len(diameters) == 0 {
		diameters = append(diameters, Any[string]())
	}

	out := make([]Combination, 0, len(brands)*len(diameters))
	for _, b := range brands {
		for _, d := range diameters {
			out = append(out, Combination{Brand: b, Diameter: d})
		}
	}
	return out
}

// Find returns every (combination, rule) overlap between s and the active rules
// in existing, skipping the rule named by s.ExcludeRuleID. Order follows the
// combinations of Expand, then the order of existing.
func Find(s Selection, existing []ExceptionRule) []Conflict {
	candidates := make([]ExceptionRule, 0, len(existing))
	for _, r := range existing {
		if !r.Active {
			continue
		}
		if s.ExcludeRuleID != nil && r.ID == *s.ExcludeRuleID {
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return nil
	}

	type key struct {
		combo  Combination
		ruleID int64
	}
	seen := make(map[key]struct{})
	var out []Conflict
	for _, combo := range Expand(s) {
		for _, r := range candidates {
			if !combo.Overlaps(r) {
				continue
			}
			k := key{combo: combo, ruleID: r.ID}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, Conflict{Combination: combo, Rule: r})
		}
	}
	return out
}

// Messages renders conflicts as warnings, dropping textual duplicates while
// keeping first-seen order.
func Messages(conflicts []Conflict, labels Labeler) []string {
	if len(conflicts) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(conflicts))
	out := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		msg := labels.ConflictMessage(c)
		if _, ok := seen[msg]; ok {
			continue
		}
		seen[msg] = struct{}{}
		out = append(out, msg)
	}
	return out
}

// Detect returns the deduplicated warnings for s against existing.
func Detect(s Selection, existing []ExceptionRule, labels Labeler) []string {
	return Messages(Find(s, existing), labels)
}
