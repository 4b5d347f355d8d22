package user

import (
	"encoding/json"
	"net/http/httptest"
)

func decodeJSON(rec *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}
