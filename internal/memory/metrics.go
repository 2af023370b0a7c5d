package memory

import (
	"encoding/json"
	"sort"

	"github.com/tidwall/gjson"
	"roleplay-insights-go/internal/logger"
	"roleplay-insights-go/internal/types"
)

// DecodeMetrics extracts the metric-update blobs that Decode skips.
// Snapshots are returned oldest first.
func DecodeMetrics(events []json.RawMessage) []types.MetricSnapshot {
	var out []types.MetricSnapshot
	for _, raw := range events {
		if !gjson.ValidBytes(raw) {
			continue
		}
		ev := gjson.ParseBytes(raw)
		ts := normalizeTimestamp(ev.Get("eventTimestamp"))
		for _, item := range ev.Get("payload").Array() {
			obj, ok := blobObject(item)
			if !ok || obj.Get("type").String() != metricsUpdate {
				continue
			}
			out = append(out, snapshotFrom(obj, ts))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out
}

func snapshotFrom(obj gjson.Result, ts string) types.MetricSnapshot {
	src := obj
	if m := obj.Get("metrics"); m.IsObject() {
		src = m
	}
	def := types.DefaultMetrics()
	snap := types.MetricSnapshot{
		AngerLevel:    level(src.Get("angerLevel"), def.AngerLevel),
		TrustLevel:    level(src.Get("trustLevel"), def.TrustLevel),
		ProgressLevel: level(src.Get("progressLevel"), def.ProgressLevel),
		Analysis:      src.Get("analysis").String(),
		MessageNumber: int(src.Get("messageNumber").Int()),
		CreatedAt:     ts,
	}
	if own := normalizeTimestamp(obj.Get("timestamp")); own != "" {
		snap.CreatedAt = own
	}
	if gs := src.Get("goalStatuses"); gs.IsArray() {
		if err := json.Unmarshal([]byte(gs.Raw), &snap.GoalStatuses); err != nil {
			snap.GoalStatuses = nil
			logger.New().Component("memory.metrics").WithError(err).
				WithField("created_at", snap.CreatedAt).
				Warn("discarding malformed goal statuses")
		}
	}
	return snap
}

// level reads a 1..10 metric level, clamping out-of-range values.
func level(v gjson.Result, def int) int {
	if !v.Exists() {
		return def
	}
	n := int(v.Int())
	switch {
	case n < 1:
		return 1
	case n > 10:
		return 10
	}
	return n
}

// LatestMetrics picks the snapshot with the greatest message number, falling
// back to the latest creation time. ok is false for an empty history.
func LatestMetrics(history []types.MetricSnapshot) (types.MetricSnapshot, bool) {
	if len(history) == 0 {
		return types.MetricSnapshot{}, false
	}
	best := history[0]
	for _, s := range history[1:] {
		switch {
		case s.MessageNumber > best.MessageNumber:
			best = s
		case s.MessageNumber == best.MessageNumber && s.CreatedAt > best.CreatedAt:
			best = s
		}
	}
	return best, true
}
