package storage

import (
	"fmt"
	"strings"

	"recetas/pkg/database"
)

const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMemory = "memory"
)

// Open returns the store for driver. path is the sqlite database or the JSON
// document; the memory driver ignores it.
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "":
		return OpenSQL(database.Config{Path: path})
	case DriverFile:
		return OpenFile(path)
	case DriverMemory:
		return NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
