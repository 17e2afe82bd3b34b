// Package playersync implements the latency-compensated seek computation
// members apply when the host answers a resync request. The exchange is
// one-shot and best-effort, with no ack and no retry. A member that
// misses the reply simply asks again.
package playersync

import "time"

// Player states, matching the embedded player widget's enum.
const (
	StateUnstarted = -1
	StateEnded     = 0
	StatePlaying   = 1
	StatePaused    = 2
	StateBuffering = 3
	StateCued      = 5
)

// LoadCompensation is the fixed allowance for the member's own media-load
// latency, added on top of the measured wall-clock delay.
const LoadCompensation = 500 * time.Millisecond

// Report is the host's answer to a sync request: a player sample taken at
// wall-clock Time (unix milliseconds).
type Report struct {
	Type        string  `json:"type"`
	PlayerState int     `json:"playerState"`
	Time        int64   `json:"time"`
	CurrentTime float64 `json:"currentTime"`
	MediaId     string  `json:"videoId"`
}

// ReportType is the only Type value currently defined.
const ReportType = "TIME"

// SeekTarget computes the position in seconds a member should seek to,
// given the wall-clock time the report was received. Only an actively
// playing host yields a target; paused, ended and buffering reports return
// ok=false and the member leaves its player alone.
func (r Report) SeekTarget(receivedAt time.Time) (float64, bool) {
	if r.PlayerState != StatePlaying {
		return 0, false
	}

	elapsed := receivedAt.Sub(time.UnixMilli(r.Time))
	return r.CurrentTime + elapsed.Seconds() + LoadCompensation.Seconds(), true
}
