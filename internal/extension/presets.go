package extension

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnknownPreset is returned for preset names that are not defined.
var ErrUnknownPreset = errors.New("unknown preset")

var presets = map[string][]string{
	"documents": {"pdf", "docx", "xlsx", "pptx"},
	"images":    {"jpg", "jpeg", "png", "gif"},
	"3d":        {"obj", "stl", "step"},
	"code":      {"py", "cpp", "cs"},
}

// PresetNames returns the defined preset names in lexical order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Preset returns the extensions of the named preset.
func Preset(name string) (Set, error) {
	exts, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPreset, "%q (valid: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return NewSet(exts...), nil
}

// Resolve merges explicit extensions with the named presets.
func Resolve(explicit []string, presetNames []string) (Set, error) {
	out := NewSet()
	for _, e := range explicit {
		out.Merge(ParseList(e))
	}
	for _, name := range presetNames {
		p, err := Preset(name)
		if err != nil {
			return nil, err
		}
		out.Merge(p)
	}
	return out, nil
}
