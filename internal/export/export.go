// Package export writes a favorites listing as CSV or as an xlsx workbook.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/xuri/excelize/v2"

	"recetas/pkg/models"
)

const Sheet = "Favoritos"

var header = []string{"key", "title", "image"}

func WriteCSV(w io.Writer, items []models.FavoriteEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, it := range items {
		if err := cw.Write([]string{it.Key, it.Title, it.Image}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteXLSX(w io.Writer, items []models.FavoriteEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", Sheet); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(Sheet)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := sw.SetRow("A1", row); err != nil {
		return err
	}
	for i, it := range items {
		cell, _ := excelize.CoordinatesToCellName(1, i+2) // A2, A3, ...
		if err := sw.SetRow(cell, []interface{}{it.Key, it.Title, it.Image}); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// Format picks the writer from a file extension or format name.
func Format(name string) (func(io.Writer, []models.FavoriteEntry) error, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext("."+name), ".")) {
	case "csv":
		return WriteCSV, nil
	case "xlsx":
		return WriteXLSX, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", name)
	}
}

// SaveFile writes items to path, choosing the format from its extension. The
// file is replaced atomically.
func SaveFile(path string, items []models.FavoriteEntry) error {
	write, err := Format(filepath.Ext(path))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := write(&buf, items); err != nil {
		return err
	}
	return atomic.WriteFile(path, &buf)
}
