package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList is a []string stored as a JSON array in jsonb/text columns.
type StringList []string

// Scan implements sql.Scanner
func (s *StringList) Scan(src interface{}) error {
	if s == nil {
		return fmt.Errorf("db: Scan on nil *StringList")
	}
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("db: cannot scan %T into StringList", src)
	}
	out := StringList{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("db: decode StringList: %w", err)
	}
	*s = out
	return nil
}

// Value implements driver.Valuer. A nil list is written as "[]".
func (s StringList) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
