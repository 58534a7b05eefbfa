package google

import (
	"fmt"
	"strconv"
	"strings"

	"ledger/internal/core"
)

// parseBudgetRows converts a values matrix into budget lines. A first row
// naming "Category" and "Amount" is treated as a header and may place the
// columns anywhere; otherwise columns are Category, Amount, CategoryId.
// Blank, total and unparseable rows are skipped, repeated names are summed.
func parseBudgetRows(values [][]interface{}) ([]core.BudgetLine, error) {
	colName, colAmount, colID := 0, 1, 2
	start := 0
	if len(values) > 0 {
		headers := toStrings(values[0])
		if n, a := indexOf(headers, "Category"), indexOf(headers, "Amount"); n != -1 || a != -1 {
			if n == -1 || a == -1 {
				return nil, fmt.Errorf("unexpected budget header: need Category and Amount, got headers=%v", headers)
			}
			colName, colAmount, colID = n, a, indexOf(headers, "CategoryId")
			start = 1
		}
	}

	lines := []core.BudgetLine{}
	index := map[string]int{}
	for _, raw := range values[start:] {
		row := toStrings(raw)
		name := safeGet(row, colName)
		if name == "" || strings.EqualFold(name, "total") {
			continue
		}
		cents, err := core.ParseDecimalToCents(stripCurrency(safeGet(row, colAmount)))
		if err != nil {
			continue
		}
		key := strings.ToLower(name)
		if i, ok := index[key]; ok {
			lines[i].Amount = lines[i].Amount.Add(core.Cents(cents))
			continue
		}
		line := core.BudgetLine{CategoryName: name, Amount: core.Cents(cents)}
		if id, err := strconv.ParseInt(safeGet(row, colID), 10, 64); err == nil && id > 0 {
			line.CategoryID = &id
		}
		index[key] = len(lines)
		lines = append(lines, line)
	}
	return lines, nil
}

// stripCurrency drops currency symbols and thousands separators written by
// spreadsheet number formats, e.g. "€ 1.200,50" or "$1,200.50".
func stripCurrency(s string) string {
	s = strings.TrimSpace(strings.Trim(s, "€$£ "))
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot != -1 && comma != -1 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
	case dot != -1 && comma != -1:
		s = strings.ReplaceAll(s, ",", "")
	}
	return s
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
