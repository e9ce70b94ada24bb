//go:build cgo

package db

import (
	_ "github.com/mattn/go-sqlite3"
)

// CgoDriver is the mattn/go-sqlite3 driver, available in cgo builds.
const CgoDriver = "sqlite3"

func init() {
	registered = append(registered, CgoDriver)
}
