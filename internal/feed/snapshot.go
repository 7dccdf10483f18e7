package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	appLog "barsign/internal/log"
	"barsign/internal/model"
)

// Loader assembles one content snapshot per refresh: the back-office JSON
// snapshot plus events imported from any subscribed ICS sources.
type Loader struct {
	fetcher     *Fetcher
	snapshotURL string
	icsSources  []Source
	loc         *time.Location
}

// NewLoader constructs a Loader. snapshotURL may be an http(s) URL, a plain
// filesystem path (single-box installs), or empty, in which case the
// snapshot starts empty and only ICS-imported events populate it.
func NewLoader(cacheDir, snapshotURL string, icsSources []Source, loc *time.Location) *Loader {
	if loc == nil {
		loc = time.UTC
	}
	return &Loader{
		fetcher:     NewFetcher(cacheDir),
		snapshotURL: snapshotURL,
		icsSources:  icsSources,
		loc:         loc,
	}
}

// Load fetches and decodes the current snapshot. Individual ICS source
// failures are logged and skipped; only an unreadable snapshot body itself
// is an error. The returned snapshot gets a fresh revision id.
func (l *Loader) Load(ctx context.Context) (*model.Snapshot, error) {
	snap := &model.Snapshot{}

	if l.snapshotURL != "" {
		res, err := l.fetcher.FetchOne(ctx, Source{ID: "snapshot", URL: l.snapshotURL})
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(res.Body, snap); err != nil {
			return nil, err
		}
	}

	results, errs := l.fetcher.FetchAll(ctx, l.icsSources)
	if len(errs) > 0 {
		appLog.Error("snapshot: some ICS sources failed", errs[0], "failed", len(errs), "total", len(l.icsSources))
	}
	for _, res := range results {
		events, err := ParseEvents(res.Source, res.Body, l.loc)
		if err != nil {
			continue
		}
		snap.Events = append(snap.Events, events...)
	}

	snap.Revision = uuid.NewString()
	snap.FetchedAt = time.Now().UTC()

	appLog.Info("snapshot loaded",
		"revision", snap.Revision,
		"events", len(snap.Events),
		"food_specials", len(snap.FoodSpecials),
		"drink_specials", len(snap.DrinkSpecials),
		"custom_slides", len(snap.Content.CustomSlides),
	)
	return snap, nil
}
