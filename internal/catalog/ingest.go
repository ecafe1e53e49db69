package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tealeg/xlsx"
)

var (
	ErrEmptySheet = errors.New("spreadsheet is empty or missing header row")
	ErrBadSheet   = errors.New("unreadable spreadsheet")
)

// Row is one product line from a bulk upload. Line is the 1-based sheet row.
type Row struct {
	Line    int
	Product Product
}

type Rejection struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// BatchResult reports a bulk ingestion. Accepted counts rows persisted,
// split into Created and Updated.
type BatchResult struct {
	Accepted int         `json:"accepted"`
	Created  int         `json:"created"`
	Updated  int         `json:"updated"`
	Rejected []Rejection `json:"rejected"`
}

type Upserter interface {
	Upsert(ctx context.Context, p *Product) (created bool, err error)
}

// Ingest upserts every row by product name. Invalid rows and rows the
// store refuses are rejected individually; the batch keeps going. Only a
// cancelled context stops it early.
func Ingest(ctx context.Context, store Upserter, rows []Row) (BatchResult, error) {
	res := BatchResult{Rejected: []Rejection{}}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if reason := validate(&row.Product); reason != "" {
			res.Rejected = append(res.Rejected, Rejection{Row: row.Line, Reason: reason})
			continue
		}
		p := row.Product
		created, err := store.Upsert(ctx, &p)
		if err != nil {
			res.Rejected = append(res.Rejected, Rejection{Row: row.Line, Reason: err.Error()})
			continue
		}
		res.Accepted++
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	return res, nil
}

func validate(p *Product) string {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return "product_name is required"
	case p.Price < 0:
		return "product_price must not be negative"
	case p.Stock < 0:
		return "stock_quantity must not be negative"
	case p.WeightKg < 0:
		return "product_weight must not be negative"
	}
	return ""
}

var columns = []string{
	"product_name", "product_category", "product_description", "product_weight",
	"product_price", "stock_quantity", "images", "ratings",
}

// ParseXLSX reads product rows from the first sheet of an Excel upload.
// The first row is a header naming the columns; column order is free and
// unknown columns are ignored. Cells that fail to parse reject their row.
func ParseXLSX(r io.ReaderAt, size int64) ([]Row, []Rejection, error) {
	file, err := xlsx.OpenReaderAt(r, size)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadSheet, err)
	}
	if len(file.Sheets) == 0 || file.Sheets[0].MaxRow < 2 {
		return nil, nil, ErrEmptySheet
	}
	sheet := file.Sheets[0]

	header := map[string]int{}
	for i, cell := range sheet.Rows[0].Cells {
		header[strings.ToLower(strings.TrimSpace(cell.String()))] = i
	}
	if _, ok := header["product_name"]; !ok {
		return nil, nil, fmt.Errorf("%w: no product_name column", ErrEmptySheet)
	}

	var (
		rows     []Row
		rejected []Rejection
	)
	for i := 1; i < sheet.MaxRow && i < len(sheet.Rows); i++ {
		xr := sheet.Rows[i]
		if xr == nil {
			continue
		}
		get := func(col string) string {
			idx, ok := header[col]
			if !ok || idx >= len(xr.Cells) {
				return ""
			}
			return strings.TrimSpace(xr.Cells[idx].String())
		}
		if blank(get) {
			continue
		}

		p, err := productFromCells(get)
		if err != nil {
			rejected = append(rejected, Rejection{Row: i + 1, Reason: err.Error()})
			continue
		}
		rows = append(rows, Row{Line: i + 1, Product: p})
	}
	return rows, rejected, nil
}

func blank(get func(string) string) bool {
	for _, c := range columns {
		if get(c) != "" {
			return false
		}
	}
	return true
}

func productFromCells(get func(string) string) (Product, error) {
	p := Product{
		Name:        get("product_name"),
		Category:    get("product_category"),
		Description: get("product_description"),
		Images:      []string{},
	}
	var err error
	if p.WeightKg, err = intCell(get("product_weight")); err != nil {
		return p, fmt.Errorf("product_weight: %w", err)
	}
	price, err := intCell(get("product_price"))
	if err != nil {
		return p, fmt.Errorf("product_price: %w", err)
	}
	p.Price = int64(price)
	if p.Stock, err = intCell(get("stock_quantity")); err != nil {
		return p, fmt.Errorf("stock_quantity: %w", err)
	}
	if s := get("ratings"); s != "" {
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return p, fmt.Errorf("ratings: %w", err)
		}
		p.Ratings = float32(f)
	}
	for _, img := range strings.Split(get("images"), ",") {
		if img = strings.TrimSpace(img); img != "" {
			p.Images = append(p.Images, img)
		}
	}
	return p, nil
}

// intCell accepts "12" and the "12.0" form spreadsheets produce for
// numeric cells, but rejects fractional values.
func intCell(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("not a whole number: %q", s)
	}
	return int(f), nil
}
