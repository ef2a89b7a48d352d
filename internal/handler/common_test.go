package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// InvalidJSON is sent verbatim, so the handlers see a malformed body
// rather than a marshalled string.
const InvalidJSON = `{"invalid": json}`

func createJSONHTTPRequest(method, url string, data interface{}) *http.Request {
	var body *bytes.Buffer
	switch v := data.(type) {
	case string:
		body = bytes.NewBufferString(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			encoded = nil
		}
		body = bytes.NewBuffer(encoded)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}
