package conflict

import (
	"errors"
	"fmt"
	"strings"
)

// MaxDiameterLen is the longest diameter value the store accepts.
const MaxDiameterLen = 16

// Validate checks s the way a form would before handing it to Detect and
// returns it with diameters trimmed. Brand ids must be positive; diameters
// must be non-blank and at most MaxDiameterLen bytes. An empty list still
// means Any.
func (s Selection) Validate() (Selection, error) {
	for _, id := range s.BrandIDs {
		if id <= 0 {
			return Selection{}, fmt.Errorf("invalid brand id %d", id)
		}
	}
	if s.ExcludeRuleID != nil && *s.ExcludeRuleID <= 0 {
		return Selection{}, fmt.Errorf("invalid exclude rule id %d", *s.ExcludeRuleID)
	}
	var diameters []string
	if s.Diameters != nil {
		diameters = make([]string, 0, len(s.Diameters))
	}
	for _, d := range s.Diameters {
		d = strings.TrimSpace(d)
		if d == "" {
			return Selection{}, errors.New("diameter must not be blank")
		}
		if len(d) > MaxDiameterLen {
			return Selection{}, fmt.Errorf("diameter %q is too long", d)
		}
		diameters = append(diameters, d)
	}
	s.Diameters = diameters
	return s, nil
}
