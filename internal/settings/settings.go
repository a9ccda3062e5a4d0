// Package settings stores per-owner interface preferences.
package settings

import (
	"context"
	"maps"
	"slices"
	"strings"

	"lifeos/internal/apperr"
	"lifeos/internal/storage"
)

// docID is the fixed id of the single settings document of an owner.
const docID = "settings"

// Defaults returns the preferences of an owner who never changed any.
func Defaults() map[string]any {
	return map[string]any{
		"theme":           "dark",
		"primaryColor":    "#4d7cff",
		"backgroundType":  "gradient",
		"backgroundColor": "#0b0f1a",
		"backgroundImage": nil,
		"showStatsBar":    true,
		"soundEnabled":    true,
		"uiOpacity":       1.0,
	}
}

type record struct {
	values map[string]any
}

// Settings holds one owner's stored preferences.
type Settings struct {
	records *storage.Records[record]
}

// Load reads the owner's settings document, if any.
func Load(ctx context.Context, store storage.Store, owner string) (*Settings, error) {
	s := &Settings{
		records: storage.NewRecords(store,
			storage.Scope{Owner: owner, Collection: storage.Settings},
			nil,
			func(*record) string { return docID },
			func(*record) int { return 0 },
			encode),
	}
	docs, err := s.records.Load(ctx)
	if err != nil {
		return nil, err
	}

	values := map[string]any{}
	for _, doc := range docs {
		for k, v := range doc {
			if allowed(k) {
				values[k] = v
			}
		}
	}
	s.records.Add(record{values: values})
	return s, nil
}

func encode(r *record) storage.Document {
	doc := maps.Clone(r.values)
	doc[storage.Settings.IDField] = docID
	return doc
}

func allowed(key string) bool {
	_, ok := Defaults()[key]
	return ok
}

// Keys returns the updatable setting names, sorted.
func Keys() []string {
	keys := make([]string, 0, len(Defaults()))
	for k := range Defaults() {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Get returns the stored values merged over the defaults.
func (s *Settings) Get() map[string]any {
	out := Defaults()
	if r, ok := s.records.Get(docID); ok {
		maps.Copy(out, r.values)
	}
	return out
}

// Update stores the known keys of patch and returns the merged settings.
// Unknown keys are ignored; a patch without any known key is rejected.
func (s *Settings) Update(ctx context.Context, patch map[string]any) (map[string]any, error) {
	accepted := map[string]any{}
	var rejected []string
	for k, v := range patch {
		if allowed(k) {
			accepted[k] = v
		} else {
			rejected = append(rejected, k)
		}
	}
	if len(accepted) == 0 {
		slices.Sort(rejected)
		return nil, apperr.Validation("settings", strings.Join(rejected, ","), "no known setting supplied")
	}

	r, _ := s.records.Get(docID)
	maps.Copy(r.values, accepted)
	return s.Get(), s.records.Save(ctx, []*record{r}, nil)
}
