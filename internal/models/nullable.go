package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// NullableTime различает отсутствующее поле и явный null в JSON.
// Set == true и Time == nil означает "очистить значение".
type NullableTime struct {
	Set  bool
	Time *time.Time
}

func (n *NullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Time = nil
		return nil
	}

	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	n.Time = &t
	return nil
}
