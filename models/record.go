package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Record is one structured product extracted from a single card fragment.
// Any field may be null when the extraction service could not infer it.
type Record struct {
	ID          Text `json:"ID"`
	Title       Text `json:"Title"`
	Price       Text `json:"Price"`
	Image       Text `json:"Image"`
	Description Text `json:"Description"`
}

// Text is a nullable string that also accepts JSON numbers and booleans,
// since language models are not consistent about quoting prices and IDs.
type Text struct {
	Value string
	Valid bool
}

// NewText returns a valid Text holding s.
func NewText(s string) Text {
	return Text{Value: s, Valid: true}
}

// MarshalJSON encodes an invalid Text as null.
func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Text{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = NewText(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*t = NewText(strconv.FormatBool(b))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*t = NewText(n.String())
	}
	return nil
}
