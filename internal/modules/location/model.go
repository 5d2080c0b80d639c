// README: Location snapshot for persistence and replay.
package location

import (
	"time"

	"metrosync/internal/types"
)

type Snapshot struct {
	ID         int64
	UserID     types.ID
	Role       string
	Position   types.Point
	RecordedAt time.Time
}

// DriverPosition is a live driver location from the Redis GEO index.
type DriverPosition struct {
	DriverID  types.ID
	Position  types.Point
	DistanceM float64
}
