// Package ident implements the codec between the canonical textual form of an
// entity identifier and the compact 16-byte form every storage query compares on.
package ident

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidID returned when a textual identifier is malformed.
var ErrInvalidID = errors.New("invalid identifier")

// ID is a 128-bit entity identifier.
type ID [16]byte

// Parse converts the canonical textual form into an ID.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}

	return ID(u), nil
}

// New returns a random ID.
func New() ID {
	return ID(uuid.New())
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Bytes returns the compact binary form.
func (id ID) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, id[:])

	return b
}

// Value implements driver.Valuer, identifiers are stored as raw bytes.
func (id ID) Value() (driver.Value, error) {
	return id.Bytes(), nil
}

// Scan implements sql.Scanner.
func (id *ID) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok || len(b) != len(id) {
		return fmt.Errorf("%w: unexpected storage form %T", ErrInvalidID, src)
	}

	copy(id[:], b)

	return nil
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: not a string", ErrInvalidID)
	}

	v, err := Parse(s)
	if err != nil {
		return err
	}

	*id = v

	return nil
}
