package domain

import (
	"fmt"
	"strings"
)

// Category classifies what kind of crisis resource an entry is.
// Informational only: it never influences the protection decision.
type Category uint8

const (
	// CategoryGenericCrisis is the catch-all for uncategorized resources.
	CategoryGenericCrisis Category = iota
	// CategorySuicidePrevention covers suicide-prevention hotlines and sites.
	CategorySuicidePrevention
	// CategoryAbuseShelter covers domestic-violence and abuse shelters.
	CategoryAbuseShelter
	// CategoryCrisisText covers text/chat based crisis services.
	CategoryCrisisText
	// CategorySubstanceAbuse covers addiction and substance-abuse helplines.
	CategorySubstanceAbuse
	// CategoryChildAbuse covers child-abuse reporting and support services.
	CategoryChildAbuse
	// CategorySexualAssault covers sexual-assault support services.
	CategorySexualAssault
)

// String returns a stable string representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryGenericCrisis:
		return "generic-crisis"
	case CategorySuicidePrevention:
		return "suicide-prevention"
	case CategoryAbuseShelter:
		return "abuse-shelter"
	case CategoryCrisisText:
		return "crisis-text"
	case CategorySubstanceAbuse:
		return "substance-abuse"
	case CategoryChildAbuse:
		return "child-abuse"
	case CategorySexualAssault:
		return "sexual-assault"
	default:
		return fmt.Sprintf("Category(%d)", c)
	}
}

// ParseCategory converts a string into a Category (case-insensitive).
// Unknown values map to CategoryGenericCrisis with an error, so callers
// can choose to keep the entry rather than reject a whole snapshot over
// an unrecognized label.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic-crisis", "":
		return CategoryGenericCrisis, nil
	case "suicide-prevention":
		return CategorySuicidePrevention, nil
	case "abuse-shelter":
		return CategoryAbuseShelter, nil
	case "crisis-text":
		return CategoryCrisisText, nil
	case "substance-abuse":
		return CategorySubstanceAbuse, nil
	case "child-abuse":
		return CategoryChildAbuse, nil
	case "sexual-assault":
		return CategorySexualAssault, nil
	default:
		return CategoryGenericCrisis, fmt.Errorf("unsupported Category: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown labels
// degrade to generic-crisis instead of failing the decode.
func (c *Category) UnmarshalText(b []byte) error {
	v, _ := ParseCategory(string(b))
	*c = v
	return nil
}
