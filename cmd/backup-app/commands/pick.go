package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ktr0731/go-fuzzyfinder"

	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/internal/extension"
)

// picker lets the user choose any number of items. It returns the chosen
// indexes.
type picker func(items []string, preview func(i int) string) ([]int, error)

func fuzzyPicker(items []string, preview func(i int) string) ([]int, error) {
	return fuzzyfinder.FindMulti(
		items,
		func(i int) string { return items[i] },
		fuzzyfinder.WithHeader("Tab selects, Enter confirms"),
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			return preview(i)
		}),
	)
}

// pickExtensions offers every preset extension plus the ones already chosen
// and returns the union of the current set and the selection. Aborting the
// picker cancels the run.
func pickExtensions(pick picker, current extension.Set) (extension.Set, error) {
	owners := map[string][]string{}
	for _, name := range extension.PresetNames() {
		set, _ := extension.Preset(name)
		for _, ext := range set.Sorted() {
			owners[ext] = append(owners[ext], name)
		}
	}
	for ext := range current {
		if _, ok := owners[ext]; !ok {
			owners[ext] = nil
		}
	}

	items := make([]string, 0, len(owners))
	for ext := range owners {
		items = append(items, ext)
	}
	slices.Sort(items)

	preview := func(i int) string {
		ext := items[i]
		var b strings.Builder
		fmt.Fprintf(&b, "Extension: .%s\n", ext)
		if len(owners[ext]) > 0 {
			fmt.Fprintf(&b, "Presets:   %s\n", strings.Join(owners[ext], ", "))
		}
		if current.Contains(ext) {
			b.WriteString("\nalready selected")
		}
		return b.String()
	}

	idx, err := pick(items, preview)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil, errors.NewUserError(errors.ErrCancelled, "")
		}
		return nil, errors.Wrap(err, "extension picker failed")
	}

	out := extension.NewSet()
	out.Merge(current)
	for _, i := range idx {
		out.Add(items[i])
	}
	return out, nil
}
