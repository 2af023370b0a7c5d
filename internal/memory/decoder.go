// Package memory decodes conversation events returned by the external
// conversational-memory service.
package memory

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"roleplay-insights-go/internal/types"
)

const metricsUpdate = "METRICS_UPDATE"

// TimestampLayout is the fixed-width UTC form every decoded timestamp is
// normalised to, so lexical order matches chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// payloadDecoder tries to read one message out of a payload item.
type payloadDecoder func(item gjson.Result, eventTS string) (types.ConversationMessage, bool)

// decoders run in precedence order; the first match wins.
var decoders = []payloadDecoder{
	decodeConversational,
	decodeBlob,
	decodeLegacy,
}

// Decode turns raw events into a transcript stable-sorted by timestamp.
// Malformed events and payloads are dropped; Decode never fails.
func Decode(events []json.RawMessage) []types.ConversationMessage {
	out := make([]types.ConversationMessage, 0, len(events))
	for _, raw := range events {
		out = append(out, decodeEvent(raw)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

func decodeEvent(raw json.RawMessage) (msgs []types.ConversationMessage) {
	defer func() {
		if recover() != nil {
			msgs = nil
		}
	}()

	if !gjson.ValidBytes(raw) {
		return nil
	}
	ev := gjson.ParseBytes(raw)
	if !ev.IsObject() {
		return nil
	}
	ts := normalizeTimestamp(ev.Get("eventTimestamp"))
	if ts == "" {
		ts = normalizeTimestamp(ev.Get("timestamp"))
	}

	payload := ev.Get("payload")
	items := payload.Array()
	if !payload.Exists() {
		// Legacy events carry the message on the event itself.
		items = []gjson.Result{ev}
	} else if payload.IsObject() {
		items = []gjson.Result{payload}
	}

	for _, item := range items {
		for _, dec := range decoders {
			if m, ok := dec(item, ts); ok {
				msgs = append(msgs, m)
				break
			}
		}
	}
	return msgs
}

func decodeConversational(item gjson.Result, ts string) (types.ConversationMessage, bool) {
	conv := item.Get("conversational")
	if !conv.IsObject() {
		return types.ConversationMessage{}, false
	}
	text := conv.Get("content.text").String()
	if text == "" && conv.Get("content").Type == gjson.String {
		text = conv.Get("content").String()
	}
	content := unwrapText(text)
	if strings.TrimSpace(content) == "" {
		return types.ConversationMessage{}, false
	}
	return types.ConversationMessage{
		Sender:    senderFromRole(conv.Get("role").String()),
		Content:   content,
		Timestamp: ts,
	}, true
}

func decodeBlob(item gjson.Result, ts string) (types.ConversationMessage, bool) {
	obj, ok := blobObject(item)
	if !ok || obj.Get("type").String() == metricsUpdate {
		return types.ConversationMessage{}, false
	}
	return messageFromObject(obj, ts)
}

func decodeLegacy(item gjson.Result, ts string) (types.ConversationMessage, bool) {
	candidates := []gjson.Result{item}
	if data := item.Get("data"); data.IsObject() {
		candidates = append([]gjson.Result{data}, candidates...)
	} else if data.Type == gjson.String && gjson.Valid(data.String()) {
		candidates = append([]gjson.Result{gjson.Parse(data.String())}, candidates...)
	}
	for _, c := range candidates {
		if c.Get("type").String() == metricsUpdate {
			return types.ConversationMessage{}, false
		}
		if m, ok := messageFromObject(c, ts); ok {
			return m, true
		}
	}
	return types.ConversationMessage{}, false
}

// blobObject resolves the blob data to a JSON object. Data may be an object,
// a JSON string, a double-encoded JSON string, or base64 of either.
func blobObject(item gjson.Result) (gjson.Result, bool) {
	blob := item.Get("blob")
	if !blob.Exists() {
		return gjson.Result{}, false
	}
	data := blob
	if blob.IsObject() {
		data = blob.Get("data")
		if !data.Exists() {
			data = blob
		}
	}
	if data.IsObject() {
		return data, true
	}
	if data.Type != gjson.String {
		return gjson.Result{}, false
	}
	s := data.String()
	for i := 0; i < 3; i++ {
		if gjson.Valid(s) {
			r := gjson.Parse(s)
			if r.IsObject() {
				return r, true
			}
			if r.Type == gjson.String {
				s = r.String()
				continue
			}
			return gjson.Result{}, false
		}
		dec, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return gjson.Result{}, false
		}
		s = string(dec)
	}
	return gjson.Result{}, false
}

func messageFromObject(obj gjson.Result, ts string) (types.ConversationMessage, bool) {
	if !obj.IsObject() {
		return types.ConversationMessage{}, false
	}
	who := obj.Get("sender")
	if !who.Exists() {
		who = obj.Get("role")
	}
	body := obj.Get("content")
	if !body.Exists() {
		body = obj.Get("text")
	}
	if !who.Exists() || !body.Exists() {
		return types.ConversationMessage{}, false
	}
	content := contentText(body)
	if strings.TrimSpace(content) == "" {
		return types.ConversationMessage{}, false
	}
	if own := normalizeTimestamp(obj.Get("timestamp")); own != "" {
		ts = own
	}
	return types.ConversationMessage{
		Sender:    senderFromRole(who.String()),
		Content:   content,
		Timestamp: ts,
	}, true
}

// unwrapText peels up to two JSON-string layers and then looks for message
// text in the known shapes. Anything unparseable is returned as plain text.
func unwrapText(text string) string {
	s := text
	for layer := 0; layer < 2; layer++ {
		trimmed := strings.TrimSpace(s)
		if !gjson.Valid(trimmed) {
			return s
		}
		r := gjson.Parse(trimmed)
		switch {
		case r.Type == gjson.String:
			s = r.String()
		case r.IsObject():
			if parts := r.Get("message.content"); parts.Exists() {
				if t := contentText(parts); t != "" {
					return t
				}
			}
			if c := r.Get("content"); c.Exists() {
				return contentText(c)
			}
			if t := r.Get("text"); t.Exists() {
				return t.String()
			}
			return s
		default:
			return s
		}
	}
	return s
}

// contentText reads a content value that is either a string or a list of
// {text} parts.
func contentText(v gjson.Result) string {
	if v.IsArray() {
		var parts []string
		for _, p := range v.Array() {
			switch {
			case p.Type == gjson.String:
				parts = append(parts, p.String())
			case p.Get("text").Exists():
				parts = append(parts, p.Get("text").String())
			}
		}
		return strings.Join(parts, "\n")
	}
	if v.IsObject() {
		return v.Get("text").String()
	}
	return v.String()
}

func senderFromRole(role string) types.Sender {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case "USER", "HUMAN":
		return types.SenderUser
	default:
		return types.SenderNPC
	}
}

// normalizeTimestamp accepts RFC3339 strings and epoch seconds or
// milliseconds. Unrecognised strings are kept verbatim.
func normalizeTimestamp(v gjson.Result) string {
	switch v.Type {
	case gjson.Number:
		return formatEpoch(v.Float())
	case gjson.String:
		s := strings.TrimSpace(v.String())
		if s == "" {
			return ""
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC().Format(TimestampLayout)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return formatEpoch(f)
		}
		return s
	default:
		return ""
	}
}

// formatEpoch keeps sub-millisecond precision, rounded to the microsecond
// to drop float noise.
func formatEpoch(f float64) string {
	whole, frac := math.Modf(f)
	var t time.Time
	// Values past year 2286 in seconds are treated as milliseconds.
	if f > 1e10 {
		t = time.UnixMilli(int64(whole)).Add(time.Duration(math.Round(frac*1e3)) * time.Microsecond)
	} else {
		t = time.Unix(int64(whole), int64(math.Round(frac*1e6))*int64(time.Microsecond))
	}
	return t.UTC().Format(TimestampLayout)
}
