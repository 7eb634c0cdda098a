package apiclient

import (
	"encoding/json"
	"fmt"

	"github.com/and161185/libdesk/internal/errs"
	"github.com/tidwall/gjson"
)

// parseEnvelope checks the {data, message, status, success} shape without
// trusting it. A non-2xx status is always an *errs.APIError, carrying the
// server message when the body happens to be a readable envelope.
func parseEnvelope(status int, raw []byte) (*Response, error) {
	if status < 200 || status > 299 {
		return nil, &errs.APIError{Status: status, Message: errorMessage(raw)}
	}

	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: body is not JSON", errs.ErrMalformed)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: envelope is not an object", errs.ErrMalformed)
	}

	success := root.Get("success")
	if success.Type != gjson.True && success.Type != gjson.False {
		return nil, fmt.Errorf("%w: missing or non-boolean success", errs.ErrMalformed)
	}

	msg := root.Get("message")
	if msg.Exists() && msg.Type != gjson.String && msg.Type != gjson.Null {
		return nil, fmt.Errorf("%w: non-string message", errs.ErrMalformed)
	}

	if st := root.Get("status"); st.Exists() && st.Type != gjson.Number && st.Type != gjson.String && st.Type != gjson.Null {
		return nil, fmt.Errorf("%w: bad status field", errs.ErrMalformed)
	}

	if !success.Bool() {
		return nil, &errs.APIError{Status: status, Message: msg.String(), Application: true}
	}

	out := &Response{Status: status, Message: msg.String()}
	if d := root.Get("data"); d.Exists() {
		out.Data = json.RawMessage(d.Raw)
	}
	return out, nil
}

// errorMessage extracts a human message from an error body, if any.
func errorMessage(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return ""
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return ""
	}
	for _, key := range []string{"message", "error"} {
		if v := root.Get(key); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
