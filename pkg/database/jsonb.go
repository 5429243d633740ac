package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB stores T as a postgres jsonb column. A NULL column scans to the zero value.
type JSONB[T any] struct {
	Data  T
	Valid bool
}

func NewJSONB[T any](data T) JSONB[T] {
	return JSONB[T]{Data: data, Valid: true}
}

func (p *JSONB[T]) Scan(src any) error {
	var zero T
	switch v := src.(type) {
	case nil:
		p.Data, p.Valid = zero, false
		return nil
	case []byte:
		p.Valid = true
		return json.Unmarshal(v, &p.Data)
	case string:
		p.Valid = true
		return json.Unmarshal([]byte(v), &p.Data)
	default:
		return fmt.Errorf("JSONB.Scan: expected []byte, got %T", src)
	}
}

func (p JSONB[T]) Value() (driver.Value, error) {
	if !p.Valid {
		return nil, nil
	}
	return json.Marshal(p.Data)
}

func (p JSONB[T]) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.Data)
}

func (p *JSONB[T]) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		var zero T
		p.Data, p.Valid = zero, false
		return nil
	}
	p.Valid = true
	return json.Unmarshal(b, &p.Data)
}
