package documents

import (
	"fmt"
	"sync"
	"time"

	"docchat-backend/internal/shared/util"
)

const fallbackFileName = "upload"

// DerivePath builds the storage path for an upload. It is deterministic in its inputs:
// <owner key>/<unix nanos>_<sanitized display name>.
func DerivePath(ownerID string, at time.Time, displayName string) string {
	name, err := util.SanitizeFileName(displayName)
	if err != nil {
		name = fallbackFileName
	}
	return fmt.Sprintf("%s/%d_%s", util.OwnerKey(ownerID), at.UTC().UnixNano(), name)
}

// monotonicClock hands out strictly increasing UTC instants at microsecond precision,
// the finest resolution the metadata store keeps, so two uploads in one process
// never derive the same path.
type monotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func newMonotonicClock(now func() time.Time) *monotonicClock {
	if now == nil {
		now = time.Now
	}
	return &monotonicClock{now: now}
}

func (c *monotonicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
