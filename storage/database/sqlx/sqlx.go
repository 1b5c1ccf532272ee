// Package sqlxrepos implements the core repositories on PostgreSQL through sqlx.
package sqlxrepos

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// jsonMap scans a JSONB column into a map.
type jsonMap map[string]interface{}

func (m *jsonMap) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = jsonMap{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.Errorf("jsonMap: unsupported type %T", src)
	}
	out := make(jsonMap)
	if err := json.Unmarshal(raw, &out); err != nil {
		return errors.Wrap(err, "jsonMap: decoding")
	}
	*m = out
	return nil
}

func marshalJSON(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding JSON")
	}
	if string(b) == "null" {
		return []byte("{}"), nil
	}
	return b, nil
}

// trapNoRowsErr maps psql "no rows" err to `notFound`
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func nullTimePtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}
