package services

import (
	"regexp"
	"strconv"
	"strings"
)

var volumePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(ml|l|g|kg)`)

// ExtractVolumeML reads the first quantity and unit token from variant,
// falling back to product when variant is blank. Liters and kilograms are
// scaled by 1000, so mass and volume share the same field.
func ExtractVolumeML(variant, product string) *int {
	source := variant
	if strings.TrimSpace(source) == "" {
		source = product
	}

	m := volumePattern.FindStringSubmatch(source)
	if m == nil {
		return nil
	}

	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}

	switch strings.ToLower(m[2]) {
	case "l", "kg":
		amount *= 1000
	}

	ml := int(amount + 0.5)
	return &ml
}
