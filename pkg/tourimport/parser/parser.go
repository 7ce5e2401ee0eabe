// Package parser reads delimited (tab-separated) tour feeds into typed
// records. Parsing is tolerant by design: malformed rows are padded or
// truncated rather than rejected, so a bad line costs one record, never
// the import. A validation-only mode runs the same field checks and
// reports without writing anything.
package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/voyagekit/tourimport/pkg/tourimport"
)

// Recognized header names. Localized columns carry an _en/_fr suffix.
const (
	HeaderTitle               = "title"
	HeaderSlug                = "url_slug"
	HeaderDestination         = "destination"
	HeaderCategory            = "category"
	HeaderDurationDays        = "duration_days"
	HeaderPrice               = "price"
	HeaderChildPrice          = "child_price"
	HeaderB2BPrice            = "b2b_price"
	HeaderCurrency            = "currency"
	HeaderIncluded            = "what_included"
	HeaderExcluded            = "what_not_included"
	HeaderImageURL            = "image_url"
	HeaderDestinationImageURL = "destination_image_url"
	HeaderDescription         = "description"
)

// knownCurrencies is the currency enumeration the feed may use.
var knownCurrencies = map[string]bool{
	"THB": true,
	"EUR": true,
	"USD": true,
	"GBP": true,
}

// Row is one parsed data row: a field-name to value mapping plus its
// 1-based index (header excluded). Values are never missing; absent
// cells are empty strings.
type Row struct {
	Index  int
	fields map[string]string
}

// Get returns the value for a header name, falling back to a
// case-insensitive match. Unknown names yield "".
func (r Row) Get(name string) string {
	if v, ok := r.fields[name]; ok {
		return v
	}
	lower := strings.ToLower(name)
	for k, v := range r.fields {
		if strings.ToLower(k) == lower {
			return v
		}
	}
	return ""
}

// Parse reads tab-separated input with a required header row. Rows with
// a column-count mismatch are padded with empty values or truncated to
// the header width.
func Parse(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header row: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []Row
	index := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", index+1, err)
		}

		index++
		fields := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(record) {
				fields[name] = strings.TrimSpace(record[i])
			} else {
				fields[name] = ""
			}
		}
		rows = append(rows, Row{Index: index, fields: fields})
	}

	return rows, nil
}

// BuildRecord converts a row into a typed record for one language,
// returning field-level error messages. Errors are collected, not
// thrown: a record with errors is still returned best-effort.
func BuildRecord(row Row, lang string) (tourimport.TourRecord, []string) {
	if lang == "" {
		lang = "en"
	}

	rec := tourimport.TourRecord{
		Row:                 row.Index,
		Language:            lang,
		Title:               row.Get(localized(HeaderTitle, lang)),
		Slug:                row.Get(localized(HeaderSlug, lang)),
		Destination:         row.Get(HeaderDestination),
		Category:            row.Get(localized(HeaderCategory, lang)),
		Description:         row.Get(localized(HeaderDescription, lang)),
		Currency:            strings.ToUpper(row.Get(HeaderCurrency)),
		Included:            splitList(row.Get(HeaderIncluded)),
		Excluded:            splitList(row.Get(HeaderExcluded)),
		ImageURL:            row.Get(HeaderImageURL),
		DestinationImageURL: row.Get(HeaderDestinationImageURL),
	}

	var errs []string
	if rec.Title == "" && rec.Slug == "" {
		errs = append(errs, fmt.Sprintf("missing required %s_%s or %s_%s", HeaderTitle, lang, HeaderSlug, lang))
	}

	rec.DurationDays, errs = parseIntField(row, HeaderDurationDays, errs)
	rec.Price, errs = parseFloatField(row, HeaderPrice, errs)
	rec.ChildPrice, errs = parseFloatField(row, HeaderChildPrice, errs)
	rec.B2BPrice, errs = parseFloatField(row, HeaderB2BPrice, errs)

	if rec.Currency != "" && !knownCurrencies[rec.Currency] {
		errs = append(errs, fmt.Sprintf("unknown currency %q", rec.Currency))
	}

	return rec, errs
}

// Records converts every parsed row into a typed record for one
// language. Invalid rows are included best-effort so the import can
// account for them individually.
func Records(rows []Row, lang string) []tourimport.TourRecord {
	records := make([]tourimport.TourRecord, 0, len(rows))
	for _, row := range rows {
		rec, _ := BuildRecord(row, lang)
		records = append(records, rec)
	}
	return records
}

// Validate runs the same per-field checks as a real import and
// aggregates the outcome without performing any writes. Calling it
// twice on the same input yields identical output.
func Validate(r io.Reader, lang string) (*tourimport.ValidationReport, error) {
	rows, err := Parse(r)
	if err != nil {
		return nil, err
	}

	report := &tourimport.ValidationReport{TotalRows: len(rows)}
	for _, row := range rows {
		rec, errs := BuildRecord(row, lang)
		if len(errs) == 0 {
			report.ValidRecords++
			continue
		}
		report.Violations += len(errs)
		report.InvalidRecords = append(report.InvalidRecords, &tourimport.InvalidRecord{
			Row:      row.Index,
			Identity: rec.Identity(),
			Errors:   errs,
		})
	}

	return report, nil
}

func localized(header, lang string) string {
	return header + "_" + lang
}

// splitList breaks a free-text cell into items on newlines, semicolons
// or pipes, dropping empties.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == ';' || r == '|'
	})
	var items []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

func parseIntField(row Row, header string, errs []string) (int, []string) {
	raw := row.Get(header)
	if raw == "" {
		return 0, errs
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, append(errs, fmt.Sprintf("%s is not a whole number: %q", header, raw))
	}
	if v < 0 {
		return 0, append(errs, fmt.Sprintf("%s must not be negative: %d", header, v))
	}
	return v, errs
}

func parseFloatField(row Row, header string, errs []string) (float64, []string) {
	raw := row.Get(header)
	if raw == "" {
		return 0, errs
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, append(errs, fmt.Sprintf("%s is not a number: %q", header, raw))
	}
	if v < 0 {
		return 0, append(errs, fmt.Sprintf("%s must not be negative: %v", header, v))
	}
	return v, errs
}
