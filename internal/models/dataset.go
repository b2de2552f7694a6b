package models

import "time"

// ColumnType is the inferred type of a dataset column.
type ColumnType string

const (
	ColumnString  ColumnType = "string"
	ColumnNumber  ColumnType = "number"
	ColumnDate    ColumnType = "date"
	ColumnBoolean ColumnType = "boolean"
)

// Column describes one column of a tabular dataset.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Dataset is an immutable reference to an uploaded tabular dataset.
// Created once on registration and never mutated; everything downstream
// refers to it by ID.
type Dataset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Columns   []Column  `json:"columns"`
	RowCount  int       `json:"row_count"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// Column returns the schema entry for the named column, if present.
func (d *Dataset) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
