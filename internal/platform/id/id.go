package id

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"drillsync/internal/platform/clock"
)

// Generator creates opaque identifiers.
type Generator interface {
	New() string
}

// TimeSuffix builds ids from the creation time in base-36 milliseconds followed by
// a random suffix, so ids sort roughly by creation and stay unique within a queue.
type TimeSuffix struct {
	Clock clock.Clock
}

func (g TimeSuffix) New() string {
	clk := g.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	millis := clk.Now().UnixMilli()
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strconv.FormatInt(millis, 36) + "-" + suffix
}
