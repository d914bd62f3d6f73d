package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Options is the ordered list of answer choices for a question.
//
// Older rows store the list as a JSON string holding an encoded array
// (`"[\"a\",\"b\"]"`) instead of a JSON array; both forms decode to the same
// slice so nothing past the persistence boundary sees the difference.
type Options []string

func (o *Options) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return fmt.Errorf("decode options string: %w", err)
		}
		data = []byte(encoded)
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	*o = list
	return nil
}

func (o Options) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(o))
}
