// Package tasks owns an owner's task projects and tasks: reserved-project
// rules, ordering, cascades, filtering and sorting.
package tasks

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lifeos/internal/models"
	"lifeos/internal/normalize"
)

// Options carries the collaborators shared by the managers.
type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

func (o Options) timestamp() time.Time {
	return models.Timestamp(o.Now())
}

func (o Options) normalizer() *normalize.Normalizer {
	return normalize.New(o.Logger).WithClock(o.Now)
}
