package storage

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"
)

// Dialect captures the SQL differences between the supported engines.
type Dialect struct {
	name   string
	driver string
	// numbered placeholders ($1) instead of ?
	numbered bool
	// expression selecting amount as text
	amountCol string
	// cast applied to the amount placeholder
	amountCast string
	textCast   string
	// unix nanoseconds instead of native timestamps
	unixTime bool
}

var (
	SQLite = Dialect{
		name:      "sqlite",
		driver:    "sqlite",
		amountCol: "amount",
		unixTime:  true,
	}
	Postgres = Dialect{
		name:       "postgres",
		driver:     "pgx",
		numbered:   true,
		amountCol:  "amount::text",
		amountCast: "::text::numeric",
		textCast:   "::text",
	}
)

func (d Dialect) Name() string { return d.name }

func (d Dialect) placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (d Dialect) timeArg(t time.Time) any {
	if d.unixTime {
		return t.UTC().UnixNano()
	}
	return t.UTC()
}

// dbTime scans created_at from either representation.
type dbTime struct {
	time.Time
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		t.Time = time.Unix(0, v).UTC()
	case time.Time:
		t.Time = v.UTC()
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("unsupported created_at type %T", src)
	}
	return nil
}

func (t *dbTime) parse(s string) error {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time = time.Unix(0, n).UTC()
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse created_at %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

var _ sql.Scanner = (*dbTime)(nil)

// nullableText passes nil through as SQL NULL.
func nullableText(s *string) driver.Value {
	if s == nil {
		return nil
	}
	return *s
}
