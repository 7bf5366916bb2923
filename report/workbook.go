package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	contentTypeXLSX   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxSheetNameRunes = 31
)

var sheetNameReplacer = strings.NewReplacer(
	":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")",
)

// workbookSheet is the tabular data of one exported item.
type workbookSheet struct {
	Name    string
	Table   *Table
	Summary *SummaryStats
}

func sheetFor(item ItemMeta, index int) workbookSheet {
	return workbookSheet{
		Name:    item.Title,
		Table:   item.Table,
		Summary: item.Summary,
	}.named(index)
}

func (s workbookSheet) named(index int) workbookSheet {
	name := strings.TrimSpace(sheetNameReplacer.Replace(s.Name))
	if name == "" {
		name = fmt.Sprintf("Chart %d", index+1)
	}
	if runes := []rune(name); len(runes) > maxSheetNameRunes {
		name = string(runes[:maxSheetNameRunes])
	}
	s.Name = name
	return s
}

func (s workbookSheet) empty() bool {
	return s.Table.Empty() && s.Summary == nil
}

func (e *Exporter) storeWorkbook(ctx context.Context, job exportJob, sheets []workbookSheet) (ArtifactRef, error) {
	var buf bytes.Buffer
	if err := renderWorkbook(&buf, sheets); err != nil {
		return ArtifactRef{}, err
	}
	key := workbookKey(job.opts.Filename)
	ref, err := e.Store.Put(ctx, key, &buf, ArtifactMeta{
		ExportID:    job.id,
		ContentType: contentTypeXLSX,
		Filename:    key,
		CreatedAt:   e.Now(),
	})
	if err != nil {
		return ArtifactRef{}, wrapUnexpected("store workbook", err)
	}
	return ref, nil
}

// renderWorkbook writes one sheet per item holding its data table followed by
// its summary block.
func renderWorkbook(w io.Writer, sheets []workbookSheet) error {
	file := excelize.NewFile()
	defer func() {
		_ = file.Close()
	}()

	headerStyle, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return NewError(KindUnexpected, "workbook style", err)
	}

	used := make(map[string]struct{})
	written := 0
	for _, sheet := range sheets {
		if sheet.empty() {
			continue
		}
		name := uniqueSheetName(used, sheet.Name)

		if written == 0 {
			if err := file.SetSheetName(file.GetSheetName(0), name); err != nil {
				return NewError(KindUnexpected, "workbook sheet", err)
			}
		} else if _, err := file.NewSheet(name); err != nil {
			return NewError(KindUnexpected, "workbook sheet", err)
		}
		written++

		if err := writeSheet(file, name, sheet, headerStyle); err != nil {
			return err
		}
	}

	if err := file.Write(w); err != nil {
		return NewError(KindUnexpected, "write workbook", err)
	}
	return nil
}

func writeSheet(file *excelize.File, name string, sheet workbookSheet, headerStyle int) error {
	row := 1
	setRow := func(values []any, bold bool) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(name, cell, &values); err != nil {
			return err
		}
		if bold && len(values) > 0 {
			last, err := excelize.CoordinatesToCellName(len(values), row)
			if err != nil {
				return err
			}
			if err := file.SetCellStyle(name, cell, last, headerStyle); err != nil {
				return err
			}
		}
		row++
		return nil
	}

	if !sheet.Table.Empty() {
		title := sheet.Table.Title
		if title == "" {
			title = defaultTableTitle
		}
		if err := setRow([]any{title}, true); err != nil {
			return NewError(KindUnexpected, "workbook table", err)
		}
		if err := setRow(toAny(sheet.Table.Headers), true); err != nil {
			return NewError(KindUnexpected, "workbook table", err)
		}
		for _, cells := range sheet.Table.Rows {
			if err := setRow(toAny(cells), false); err != nil {
				return NewError(KindUnexpected, "workbook table", err)
			}
		}
		row++
	}

	if sheet.Summary != nil {
		if err := setRow([]any{summaryTitle}, true); err != nil {
			return NewError(KindUnexpected, "workbook summary", err)
		}
		for _, pair := range sheet.Summary.Rows() {
			if err := setRow([]any{pair[0], pair[1]}, false); err != nil {
				return NewError(KindUnexpected, "workbook summary", err)
			}
		}
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// uniqueSheetName suffixes name until it is unused; sheet names compare
// case-insensitively.
func uniqueSheetName(used map[string]struct{}, name string) string {
	candidate := name
	for n := 2; ; n++ {
		key := strings.ToLower(candidate)
		if _, taken := used[key]; !taken {
			used[key] = struct{}{}
			return candidate
		}
		suffix := fmt.Sprintf(" %d", n)
		candidate = trimRunes(name, maxSheetNameRunes-len(suffix)) + suffix
	}
}

func trimRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}
