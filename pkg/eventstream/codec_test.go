package eventstream

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeWireFormat(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"start", StartEvent{MessageID: "s-1"}, `data: {"type":"start","messageId":"s-1"}` + "\n\n"},
		{"progress zero", ProgressEvent{Progress: 0}, `data: {"type":"progress","progress":0}` + "\n\n"},
		{"tool result", ToolResultEvent{Kind: "segments", Result: json.RawMessage(`[{"title":"a"}]`)},
			`data: {"type":"tool-result","kind":"segments","result":[{"title":"a"}]}` + "\n\n"},
		{"error", ErrorEvent{Message: "rate limited"}, `data: {"type":"error","message":"rate limited"}` + "\n\n"},
		{"finish", FinishEvent{}, `data: {"type":"finish"}` + "\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Encode(tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(frame))
		})
	}
}

func TestEncodeRejectsInvalidEvents(t *testing.T) {
	tests := []struct {
		name  string
		event Event
	}{
		{"progress above range", ProgressEvent{Progress: 101}},
		{"negative progress", ProgressEvent{Progress: -1}},
		{"tool result without kind", ToolResultEvent{Result: json.RawMessage(`{}`)}},
		{"tool result with broken json", ToolResultEvent{Kind: "course", Result: json.RawMessage(`{`)}},
		{"error without message", ErrorEvent{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.event)
			assert.Error(t, err)
		})
	}
}

func TestRoundTripEachKind(t *testing.T) {
	events := []Event{
		StartEvent{MessageID: "abc"},
		ProgressEvent{Progress: 42},
		ToolResultEvent{Kind: "course", Result: json.RawMessage(`{"title":"Go","modules":[]}`)},
		ErrorEvent{Message: "generation timed out"},
		FinishEvent{},
	}

	for _, ev := range events {
		t.Run(string(ev.Type()), func(t *testing.T) {
			frame, err := Encode(ev)
			require.NoError(t, err)

			parsed := Parse(frame)
			require.Len(t, parsed, 1)
			assert.Equal(t, ev, parsed[0])
		})
	}
}

func eventGenerator() *rapid.Generator[Event] {
	return rapid.Custom(func(t *rapid.T) Event {
		switch rapid.IntRange(0, 4).Draw(t, "variant") {
		case 0:
			return StartEvent{MessageID: rapid.String().Draw(t, "messageID")}
		case 1:
			return ProgressEvent{Progress: rapid.IntRange(0, 100).Draw(t, "progress")}
		case 2:
			payload := map[string]string{"title": rapid.String().Draw(t, "title")}
			raw, _ := json.Marshal(payload)
			return ToolResultEvent{Kind: rapid.StringMatching(`[a-z]{1,12}`).Draw(t, "kind"), Result: raw}
		case 3:
			return ErrorEvent{Message: rapid.StringN(1, 64, -1).Draw(t, "message")}
		default:
			return FinishEvent{}
		}
	})
}

func TestRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		events := rapid.SliceOfN(eventGenerator(), 1, 8).Draw(t, "events")

		var chunk []byte
		for _, ev := range events {
			frame, err := Encode(ev)
			if err != nil {
				t.Fatalf("encode %T: %v", ev, err)
			}
			chunk = append(chunk, frame...)
		}

		parsed := Parse(chunk)
		if len(parsed) != len(events) {
			t.Fatalf("expected %d events, got %d", len(events), len(parsed))
		}
		for i := range events {
			if !assert.ObjectsAreEqual(events[i], parsed[i]) {
				t.Fatalf("event %d: expected %#v, got %#v", i, events[i], parsed[i])
			}
		}
	})
}

func TestParseMalformedFrameTolerance(t *testing.T) {
	good, err := Encode(ProgressEvent{Progress: 50})
	require.NoError(t, err)

	chunk := append(good, []byte(`data: {"type":"progress","progr`+"\n\n")...)

	events := Parse(chunk)
	require.Len(t, events, 2)
	assert.Equal(t, ProgressEvent{Progress: 50}, events[0])

	synthetic, ok := events[1].(ErrorEvent)
	require.True(t, ok, "expected synthetic error, got %T", events[1])
	assert.Contains(t, synthetic.Message, "malformed frame")
}

func TestParseSubstitutesBadFrames(t *testing.T) {
	tests := []struct {
		name   string
		chunk  string
		reason string
	}{
		{"missing type", `data: {"progress":10}` + "\n\n", "missing type"},
		{"unknown type", `data: {"type":"ping"}` + "\n\n", "unknown type"},
		{"missing prefix", `{"type":"finish"}` + "\n\n", "missing data prefix"},
		{"tool result without kind", `data: {"type":"tool-result","result":{}}` + "\n\n", "kind"},
		{"error without message", `data: {"type":"error"}` + "\n\n", "message"},
		{"progress without value", `data: {"type":"progress"}` + "\n\n", "without progress"},
		{"not json", "data: hello\n\n", "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := Parse([]byte(tt.chunk))
			require.Len(t, events, 1)
			ev, ok := events[0].(ErrorEvent)
			require.True(t, ok)
			assert.Contains(t, ev.Message, tt.reason)
		})
	}
}

func TestParseEmptyAndCommentChunks(t *testing.T) {
	assert.Empty(t, Parse(nil))
	assert.Empty(t, Parse([]byte("\n\n\n\n")))
	assert.Empty(t, Parse([]byte(": keep-alive\n\n")))
}

func TestParseNeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chunk := rapid.SliceOf(rapid.Byte()).Draw(t, "chunk")
		events := Parse(chunk)
		for _, ev := range events {
			if ev == nil {
				t.Fatalf("nil event for chunk %q", chunk)
			}
		}
	})
}

func TestParseAcceptsPrefixWithoutSpace(t *testing.T) {
	events := Parse([]byte(strings.Join([]string{
		`data:{"type":"progress","progress":5}`,
		`data:  {"type":"finish"}`,
	}, FrameDelimiter)))
	require.Len(t, events, 2)
	assert.Equal(t, ProgressEvent{Progress: 5}, events[0])
	assert.Equal(t, FinishEvent{}, events[1])
}
