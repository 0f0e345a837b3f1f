package dao

import (
	"database/sql"
	"time"
)

type NullInt64 struct {
	sql.NullInt64
}

// AsPtr returns nil when the value is NULL
func (ni *NullInt64) AsPtr() *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

type NullString struct {
	sql.NullString
}

// AsString returns the zero string when the value is NULL
func (ns *NullString) AsString() string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

// AsPtr returns nil when the value is NULL
func (ns *NullString) AsPtr() *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

type NullTime struct {
	sql.NullTime
}

// AsPtr returns nil when the value is NULL
func (nt *NullTime) AsPtr() *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time
	return &v
}
