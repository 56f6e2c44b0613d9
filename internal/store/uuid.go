package store

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// uuidValue parses an id into the pgtype wrapper pgx binds to uuid columns.
func uuidValue(id string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, err
	}
	var v pgtype.UUID
	v.Bytes = parsed
	v.Valid = true
	return v, nil
}

// optionalUUID maps an empty id to SQL NULL.
func optionalUUID(id string) (pgtype.UUID, error) {
	if id == "" {
		return pgtype.UUID{}, nil
	}
	return uuidValue(id)
}

// uuidString renders a scanned uuid column, NULL becoming "".
func uuidString(v pgtype.UUID) string {
	if !v.Valid {
		return ""
	}
	return uuid.UUID(v.Bytes).String()
}
