package calendar

import (
	"context"
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const directoryCacheKey = "calendar_directory"

type directorySnapshot struct {
	nameToID map[string]string
	primary  string
}

// Directory resolves calendar display names to ids, caching the listing so a
// multi-hop turn hits the calendar service at most once.
type Directory struct {
	api    API
	cache  *gocache.Cache
	logger *log.Logger
}

func NewDirectory(api API, ttl time.Duration, logger *log.Logger) *Directory {
	return &Directory{
		api:    api,
		cache:  gocache.New(ttl, ttl*2),
		logger: logger,
	}
}

// NameToID returns the display-name-to-id map and the primary calendar id.
func (d *Directory) NameToID(ctx context.Context) (map[string]string, string, error) {
	if cached, found := d.cache.Get(directoryCacheKey); found {
		snapshot := cached.(directorySnapshot)
		return snapshot.nameToID, snapshot.primary, nil
	}
	calendars, err := d.api.ListCalendars(ctx)
	if err != nil {
		return nil, "", err
	}
	nameToID := make(map[string]string, len(calendars))
	primary := ""
	for _, cal := range calendars {
		nameToID[cal.Summary] = cal.ID
		if cal.Primary {
			primary = cal.ID
		}
	}
	if primary == "" && len(calendars) > 0 {
		primary = calendars[0].ID
	}
	d.cache.Set(directoryCacheKey, directorySnapshot{nameToID: nameToID, primary: primary}, gocache.DefaultExpiration)
	if d.logger != nil {
		d.logger.Printf("[CALENDAR] directory refreshed: %d calendars, primary=%s", len(calendars), primary)
	}
	return nameToID, primary, nil
}

// Invalidate drops the cached listing, forcing a refetch on next use.
func (d *Directory) Invalidate() {
	d.cache.Delete(directoryCacheKey)
}
