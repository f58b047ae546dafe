// Package abbreviations loads abbreviation dictionaries for the comparator
// from YAML files and Redis hashes.
package abbreviations

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	tlerrors "github.com/otherjamesbrown/penf-tracelink/pkg/errors"
	"github.com/otherjamesbrown/penf-tracelink/pkg/similarity"
)

// MeaningSeparator joins the meanings of one abbreviation in flat stores.
const MeaningSeparator = "|"

// LoadFile reads a YAML mapping of abbreviation to meanings:
//
//	DB: [database]
//	UI: [user interface, graphical user interface]
func LoadFile(path string) (*similarity.Abbreviations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading abbreviations file: %w", err)
	}
	abbr, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading abbreviations %s: %w", path, err)
	}
	return abbr, nil
}

// Parse decodes a YAML abbreviation mapping. A scalar meaning is accepted in
// place of a one element list.
func Parse(data []byte) (*similarity.Abbreviations, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing abbreviations: %v", tlerrors.ErrValidation, err)
	}

	abbr := similarity.NewAbbreviations()
	for key, node := range raw {
		var meanings []string
		switch node.Kind {
		case yaml.ScalarNode:
			meanings = []string{node.Value}
		case yaml.SequenceNode:
			if err := node.Decode(&meanings); err != nil {
				return nil, fmt.Errorf("%w: abbreviation %q: %v", tlerrors.ErrValidation, key, err)
			}
		default:
			return nil, fmt.Errorf("%w: abbreviation %q must map to a string or a list", tlerrors.ErrValidation, key)
		}
		abbr.Add(key, meanings...)
	}
	return abbr, nil
}

// encodeMeanings flattens meanings for a hash field.
func encodeMeanings(meanings []string) string {
	return strings.Join(meanings, MeaningSeparator)
}

// decodeMeanings splits a hash field value back into meanings.
func decodeMeanings(value string) []string {
	parts := strings.Split(value, MeaningSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
