package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/guttosm/tickerql/internal/domain/models"
)

// expectedHeaders enforces strict column ordering for market data files.
// If the header doesn't match EXACTLY (order + count), the import fails.
var expectedHeaders = []string{"symbol", "name", "sector", "date", "close_price", "volume"}

const dateLayout = "2006-01-02"

// parseFile reads one CSV file and groups its rows by symbol, keeping the
// order in which symbols first appear. The first row of a symbol supplies
// its name and sector.
//
// It fails on:
//   - header not matching expected order/length
//   - a row with the wrong column count or an unparsable value
//   - unrecoverable I/O errors
func parseFile(ctx context.Context, path string) ([]models.MarketDataInput, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(expectedHeaders) {
		return nil, 0, fmt.Errorf("invalid header length: expected %d, got %d", len(expectedHeaders), len(header))
	}
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) != expectedHeaders[i] {
			return nil, 0, fmt.Errorf("invalid header at col %d: expected %q, got %q", i+1, expectedHeaders[i], h)
		}
	}

	var groups []models.MarketDataInput
	index := map[string]int{}
	rows := 0
	line := 1

	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read line after %d: %w", line, err)
		}
		line++

		if len(rec) != len(expectedHeaders) {
			return nil, 0, fmt.Errorf("invalid column count on line %d: expected %d got %d", line, len(expectedHeaders), len(rec))
		}

		symbol, name, sector, price, err := recordToPrice(rec)
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}

		i, ok := index[symbol]
		if !ok {
			i = len(groups)
			index[symbol] = i
			groups = append(groups, models.MarketDataInput{Symbol: symbol, Name: name, Sector: sector})
		}
		groups[i].Prices = append(groups[i].Prices, price)
		rows++
	}

	return groups, rows, nil
}

// recordToPrice converts one validated record.
//
// Column order:
//
//	0 symbol       required, case preserved
//	1 name
//	2 sector
//	3 date         required, YYYY-MM-DD
//	4 close_price  required, "." or "," as decimal separator
//	5 volume       integer, empty → 0
func recordToPrice(rec []string) (symbol, name, sector string, p models.PriceInput, err error) {
	symbol = strings.TrimSpace(rec[0])
	if symbol == "" {
		return "", "", "", p, errors.New("symbol is empty")
	}
	name = strings.TrimSpace(rec[1])
	sector = strings.TrimSpace(rec[2])

	p.Date, err = time.ParseInLocation(dateLayout, strings.TrimSpace(rec[3]), time.UTC)
	if err != nil {
		return "", "", "", p, fmt.Errorf("invalid date: %v", err)
	}

	s := strings.ReplaceAll(strings.TrimSpace(rec[4]), ",", ".")
	if p.ClosePrice, err = strconv.ParseFloat(s, 64); err != nil {
		return "", "", "", p, fmt.Errorf("invalid close_price: %v", err)
	}

	if s := strings.TrimSpace(rec[5]); s != "" {
		if p.Volume, err = strconv.ParseInt(s, 10, 64); err != nil {
			return "", "", "", p, fmt.Errorf("invalid volume: %v", err)
		}
	}

	return symbol, name, sector, p, nil
}
