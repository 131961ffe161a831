package mcp_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	mcp "github.com/open-mcp/engine"
)

func TestMessageKindDiscrimination(t *testing.T) {
	reqID := mcp.NewRequestID(int64(1))

	cases := []struct {
		name string
		msg  mcp.Message
		want mcp.MessageKind
	}{
		{"request", mcp.NewRequestMessage(reqID, "tools/call", mcp.ParamsValue{}), mcp.KindRequest},
		{"notification", mcp.NewNotificationMessage("notifications/progress", mcp.ParamsValue{}), mcp.KindNotification},
		{"response", mcp.NewResultMessage(reqID, []byte(`{}`)), mcp.KindResponse},
		{"error response", mcp.NewErrorMessage(reqID, &mcp.Error{Code: mcp.ErrCodeInvalidParams, Message: "bad"}), mcp.KindErrorResponse},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.msg.Kind(); got != tc.want {
				t.Errorf("Kind() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMessageMarshalUnmarshalRoundTrip(t *testing.T) {
	id := mcp.NewRequestID("abc")
	params, err := mcp.ValueParamsValue(map[string]string{"name": "echo"})
	if err != nil {
		t.Fatalf("ValueParamsValue: %v", err)
	}
	original := mcp.NewRequestMessage(id, "tools/call", params)

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded mcp.Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Method != original.Method {
		t.Errorf("Method = %q, want %q", decoded.Method, original.Method)
	}
	if decoded.ID.String() != original.ID.String() {
		t.Errorf("ID = %q, want %q", decoded.ID.String(), original.ID.String())
	}
	if decoded.Kind() != mcp.KindRequest {
		t.Errorf("Kind() = %v, want KindRequest", decoded.Kind())
	}
}

func TestMessageUnmarshalRejectsWrongJSONRPCVersion(t *testing.T) {
	var msg mcp.Message
	err := json.Unmarshal([]byte(`{"jsonrpc":"1.0","method":"ping","id":1}`), &msg)
	if err == nil {
		t.Fatal("expected an error for a non-2.0 jsonrpc field")
	}
}

func TestEncodeLineAppendsExactlyOneNewline(t *testing.T) {
	var buf bytes.Buffer
	msg := mcp.NewNotificationMessage("notifications/progress", mcp.ParamsValue{})
	if err := mcp.EncodeLine(&buf, msg); err != nil {
		t.Fatalf("EncodeLine: %v", err)
	}

	out := buf.String()
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("expected trailing newline, got %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected exactly one newline, got %q", out)
	}
}

func TestLineReaderSplitsMultipleMessages(t *testing.T) {
	input := `{"jsonrpc":"2.0","method":"a","id":1}` + "\n" +
		`{"jsonrpc":"2.0","method":"b","id":2}` + "\n"
	lr := mcp.NewLineReader(strings.NewReader(input))

	first, err := lr.Next()
	if err != nil {
		t.Fatalf("Next (first): %v", err)
	}
	if first.Method != "a" {
		t.Errorf("first.Method = %q, want %q", first.Method, "a")
	}

	second, err := lr.Next()
	if err != nil {
		t.Fatalf("Next (second): %v", err)
	}
	if second.Method != "b" {
		t.Errorf("second.Method = %q, want %q", second.Method, "b")
	}

	if _, err := lr.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF after last message, got %v", err)
	}
}

func TestLineReaderSurfacesParseErrorForMalformedLine(t *testing.T) {
	input := `{"jsonrpc":"2.0","method":"a","id":7,` + "\n"
	lr := mcp.NewLineReader(strings.NewReader(input + "\n"))

	_, err := lr.Next()
	if err == nil {
		t.Fatal("expected a parse error for malformed JSON")
	}

	var parseErr *mcp.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *mcp.ParseError, got %T", err)
	}
}

func TestDecodeSSEDataLineTrimsWhitespace(t *testing.T) {
	msg, err := mcp.DecodeSSEDataLine([]byte("  {\"jsonrpc\":\"2.0\",\"method\":\"ping\"}  \n"))
	if err != nil {
		t.Fatalf("DecodeSSEDataLine: %v", err)
	}
	if msg.Method != "ping" {
		t.Errorf("Method = %q, want %q", msg.Method, "ping")
	}
}

func TestParamsValueProgressTokenRoundTrip(t *testing.T) {
	raw, err := mcp.WithProgressToken([]byte(`{"name":"echo"}`), mcp.NewProgressToken())
	if err != nil {
		t.Fatalf("WithProgressToken: %v", err)
	}

	params := mcp.RawParamsValue(raw)
	token, ok := params.ProgressToken()
	if !ok {
		t.Fatal("expected a progress token to be present")
	}
	if token.String() == "" {
		t.Error("expected a non-empty progress token")
	}

	obj, ok := params.Object()
	if !ok {
		t.Fatal("expected params to decode as an object")
	}
	if obj["name"] != "echo" {
		t.Errorf("name = %v, want %q", obj["name"], "echo")
	}
}
