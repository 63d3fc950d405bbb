// Package ingest loads the seed data files: the dish workbook (xlsx),
// synonym and unit-rate tables (yaml), and nutrition records (json).
package ingest

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/AA-Fatima/599-cal/internal/model"
	"github.com/AA-Fatima/599-cal/internal/textutil"
)

// XLSXOptions configures the workbook parser.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // number of header rows to skip
}

// ReadXLSX reads a workbook and returns all rows as string slices.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for i, row := range sheet.Rows {
		if i < opts.SkipRows {
			continue
		}
		rows = append(rows, rowToStrings(row))
	}

	return rows, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// ParseDishRows builds dishes from workbook rows of the form
// [dish, country, ingredient, external_id, weight_g], one row per
// ingredient, consecutive rows of the same dish grouped together. Dish
// IDs are assigned in order of first appearance, starting at 1.
func ParseDishRows(rows [][]string) ([]model.Dish, error) {
	var (
		dishes []model.Dish
		index  = map[string]int{}
	)

	for i, row := range rows {
		if len(row) < 3 {
			continue
		}
		dishName := textutil.NormalizeKey(row[0])
		ingredientName := textutil.NormalizeKey(row[2])
		if dishName == "" || ingredientName == "" {
			continue
		}

		pos, ok := index[dishName]
		if !ok {
			pos = len(dishes)
			index[dishName] = pos
			dishes = append(dishes, model.Dish{
				ID:      int64(pos + 1),
				Name:    dishName,
				Country: textutil.NormalizeKey(row[1]),
			})
		}

		ref := model.IngredientRef{Name: ingredientName, DefaultWeightG: 100}
		if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
			id, err := strconv.ParseInt(strings.TrimSpace(row[3]), 10, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "xlsx: row %d: bad external id %q", i+1, row[3])
			}
			ref.ExternalID = &id
		}
		if len(row) > 4 && strings.TrimSpace(row[4]) != "" {
			w, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
			if err != nil {
				return nil, eris.Wrapf(err, "xlsx: row %d: bad weight %q", i+1, row[4])
			}
			if w > 0 {
				ref.DefaultWeightG = w
			}
		}

		dishes[pos].Ingredients = append(dishes[pos].Ingredients, ref)
	}

	return dishes, nil
}
