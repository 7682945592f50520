package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"sleepsense/internal/domain"
	"sleepsense/internal/ledger"
	"sleepsense/internal/metrics"
)

// Format 导入格式
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat 解析格式标记，大小写不敏感
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Options 导入策略
type Options struct {
	// Strict 为 true 时缺失或非法字段返回 ValidationError；默认宽松，使用默认值
	Strict bool
}

// Importer 把上传的数据规范化并合并进账本
type Importer struct {
	opts Options
	now  func() time.Time
}

// New 创建 Importer；now 为 nil 时使用 time.Now
func New(opts Options, now func() time.Time) *Importer {
	if now == nil {
		now = time.Now
	}
	return &Importer{opts: opts, now: now}
}

// Strict 是否严格模式
func (im *Importer) Strict() bool { return im.opts.Strict }

// Import 在 book 的副本上逐条合并，全部成功才返回新账本
// 返回的 count 为合并的记录数；count 为 0 时返回原 book
func (im *Importer) Import(book *ledger.Book, raw interface{}, format Format) (*ledger.Book, int, error) {
	rows, err := im.Parse(raw, format)
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return book, 0, nil
	}

	daily := make([]domain.DailyRecord, 0, len(rows))
	var lifestyles []domain.LifestyleRecord
	for i, row := range rows {
		rec, lifestyle, err := im.Normalize(i, row)
		if err != nil {
			return nil, 0, err
		}
		daily = append(daily, rec)
		if lifestyle != nil {
			lifestyles = append(lifestyles, *lifestyle)
		}
	}

	staged := book.Clone()
	staged.Daily.UpsertAll(daily...)
	staged.Lifestyle.UpsertAll(lifestyles...)
	for _, rec := range daily {
		staged.Calendar[rec.Date] = metrics.Calendar(rec)
	}
	return staged, len(rows), nil
}

// Parse 把原始输入解析成记录列表（字段名未经别名处理）
func (im *Importer) Parse(raw interface{}, format Format) ([]map[string]interface{}, error) {
	switch format {
	case FormatJSON:
		return parseJSON(raw)
	case FormatCSV:
		return parseCSV(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func parseJSON(raw interface{}) ([]map[string]interface{}, error) {
	switch v := raw.(type) {
	case string:
		return decodeJSON([]byte(v))
	case []byte:
		return decodeJSON(v)
	case json.RawMessage:
		return decodeJSON(v)
	case map[string]interface{}:
		return []map[string]interface{}{v}, nil
	case []map[string]interface{}:
		return v, nil
	case []interface{}:
		return recordsFromValue(v)
	case nil:
		return nil, &ParseError{Format: FormatJSON, Err: errors.New("empty input")}
	default:
		return nil, &ParseError{Format: FormatJSON, Err: fmt.Errorf("unsupported input type %T", raw)}
	}
}

func decodeJSON(b []byte) ([]map[string]interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(bytes.TrimPrefix(b, []byte("\ufeff")), &v); err != nil {
		return nil, &ParseError{Format: FormatJSON, Err: err}
	}
	return recordsFromValue(v)
}

func recordsFromValue(v interface{}) ([]map[string]interface{}, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		return []map[string]interface{}{val}, nil
	case []interface{}:
		rows := make([]map[string]interface{}, 0, len(val))
		for i, el := range val {
			m, ok := el.(map[string]interface{})
			if !ok {
				return nil, &ParseError{Format: FormatJSON, Err: fmt.Errorf("element %d is not an object", i)}
			}
			rows = append(rows, m)
		}
		return rows, nil
	default:
		return nil, &ParseError{Format: FormatJSON, Err: errors.New("expected an object or an array of objects")}
	}
}

func parseCSV(raw interface{}) ([]map[string]interface{}, error) {
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return nil, &ParseError{Format: FormatCSV, Err: fmt.Errorf("unsupported input type %T", raw)}
	}
	text = strings.TrimPrefix(text, "\ufeff")

	// 去掉空白行
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, nil
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	table, err := r.ReadAll()
	if err != nil {
		return nil, &ParseError{Format: FormatCSV, Err: err}
	}

	header := make([]string, len(table[0]))
	for i, h := range table[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]map[string]interface{}, 0, len(table)-1)
	for _, cells := range table[1:] {
		row := make(map[string]interface{}, len(header))
		for i, name := range header {
			if name == "" || i >= len(cells) {
				continue
			}
			cell := strings.TrimSpace(cells[i])
			if cell == "" {
				continue
			}
			row[name] = coerceCell(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// coerceCell 能解析为数字的单元格转为 float64，否则保留文本
func coerceCell(cell string) interface{} {
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return cell
	}
	return f
}
