package importer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"sleepsense/internal/domain"
	"sleepsense/internal/ledger"
)

// field 规范字段：别名按顺序匹配，第一个存在的生效
type field struct {
	name    string
	aliases []string
	def     int
	min     int
	max     int
}

const (
	unbounded = math.MaxInt
	noFloor   = math.MinInt
)

var (
	qualityField   = field{"quality", []string{"sleepQuality", "quality"}, 75, 0, 100}
	heartRateField = field{"heartRate", []string{"heartRate", "bpm"}, 65, noFloor, unbounded}
	spo2Field      = field{"spo2", []string{"spo2", "oxygenSaturation"}, 98, 0, 100}
	motionField    = field{"motion", []string{"motion", "movement"}, 10, 0, unbounded}
	snoringField   = field{"snoring", []string{"snoring", "snoreLevel"}, 3, 0, 10}
	durationField  = field{"duration", []string{"duration", "sleepDuration"}, 420, 0, unbounded}
	deepSleepField = field{"deepSleep", []string{"deepSleep", "deepSleepDuration"}, 120, 0, unbounded}

	apneaAliases = []string{"apnea", "apneaDetected"}
)

// 生活习惯默认值
const (
	defaultBedtime  = "22:30"
	defaultWakeTime = "06:30"
)

// Normalize 把一条原始记录规范化为 DailyRecord
// 记录中出现 caffeine / screenTime / exercise 任一字段时同时返回生活习惯记录
func (im *Importer) Normalize(index int, row map[string]interface{}) (domain.DailyRecord, *domain.LifestyleRecord, error) {
	var rec domain.DailyRecord
	var err error

	if rec.Date, err = im.date(index, row); err != nil {
		return rec, nil, err
	}

	ints := []struct {
		f   field
		dst *int
	}{
		{qualityField, &rec.Quality},
		{heartRateField, &rec.HeartRate},
		{spo2Field, &rec.SpO2},
		{motionField, &rec.Motion},
		{snoringField, &rec.Snoring},
		{durationField, &rec.Duration},
		{deepSleepField, &rec.DeepSleep},
	}
	for _, it := range ints {
		if *it.dst, err = im.intValue(index, row, it.f); err != nil {
			return rec, nil, err
		}
	}

	if rec.Apnea, err = im.apnea(index, row); err != nil {
		return rec, nil, err
	}

	lifestyle, err := im.lifestyle(index, row, rec.Date)
	if err != nil {
		return rec, nil, err
	}
	return rec, lifestyle, nil
}

// lookup 返回第一个存在且非空的别名取值
func lookup(row map[string]interface{}, aliases ...string) (interface{}, bool) {
	for _, a := range aliases {
		v, ok := row[a]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func (im *Importer) date(index int, row map[string]interface{}) (string, error) {
	v, ok := lookup(row, "date")
	if !ok {
		if im.opts.Strict {
			return "", &ValidationError{Index: index, Field: "date", Reason: "is missing"}
		}
		return im.now().UTC().Format(ledger.DateLayout), nil
	}

	s, isStr := v.(string)
	if !isStr {
		if im.opts.Strict {
			return "", &ValidationError{Index: index, Field: "date", Reason: fmt.Sprintf("must be a date string, got %T", v)}
		}
		return im.now().UTC().Format(ledger.DateLayout), nil
	}
	s = strings.TrimSpace(s)
	t, ok := ledger.ParseDate(s)
	if !ok {
		if im.opts.Strict {
			return "", &ValidationError{Index: index, Field: "date", Reason: fmt.Sprintf("is not a valid date: %q", s)}
		}
		return s, nil
	}
	// 同一天的不同写法归并到同一条记录
	return t.Format(ledger.DateLayout), nil
}

func (im *Importer) intValue(index int, row map[string]interface{}, f field) (int, error) {
	v, ok := lookup(row, f.aliases...)
	if !ok {
		if im.opts.Strict {
			return 0, &ValidationError{Index: index, Field: f.name, Reason: "is missing"}
		}
		return f.def, nil
	}

	n, err := toInt(v)
	if err != nil {
		if im.opts.Strict {
			return 0, &ValidationError{Index: index, Field: f.name, Reason: "is not a number", Err: err}
		}
		return f.def, nil
	}

	if im.opts.Strict && (n < f.min || n > f.max) {
		return 0, &ValidationError{Index: index, Field: f.name, Reason: fmt.Sprintf("value %d out of range %s", n, rangeText(f))}
	}
	return n, nil
}

func rangeText(f field) string {
	switch {
	case f.max == unbounded:
		return fmt.Sprintf("[%d,∞)", f.min)
	default:
		return fmt.Sprintf("[%d,%d]", f.min, f.max)
	}
}

func (im *Importer) apnea(index int, row map[string]interface{}) (bool, error) {
	v, ok := lookup(row, apneaAliases...)
	if !ok {
		if im.opts.Strict {
			return false, &ValidationError{Index: index, Field: "apnea", Reason: "is missing"}
		}
		return false, nil
	}
	b, err := toBool(v)
	if err != nil {
		if im.opts.Strict {
			return false, &ValidationError{Index: index, Field: "apnea", Reason: "is not a boolean", Err: err}
		}
		return false, nil
	}
	return b, nil
}

func (im *Importer) lifestyle(index int, row map[string]interface{}, date string) (*domain.LifestyleRecord, error) {
	caffeine, hasCaffeine := lookup(row, "caffeine")
	screen, hasScreen := lookup(row, "screenTime")
	exercise, hasExercise := lookup(row, "exercise")
	if !hasCaffeine && !hasScreen && !hasExercise {
		return nil, nil
	}

	rec := &domain.LifestyleRecord{
		Date:     date,
		Bedtime:  defaultBedtime,
		WakeTime: defaultWakeTime,
	}
	nums := []struct {
		name    string
		v       interface{}
		present bool
		dst     *float64
	}{
		{"caffeine", caffeine, hasCaffeine, &rec.Caffeine},
		{"screenTime", screen, hasScreen, &rec.ScreenTime},
		{"exercise", exercise, hasExercise, &rec.Exercise},
	}
	for _, n := range nums {
		if !n.present {
			continue
		}
		f, err := toFloat(n.v)
		if err != nil {
			if im.opts.Strict {
				return nil, &ValidationError{Index: index, Field: n.name, Reason: "is not a number", Err: err}
			}
			continue
		}
		*n.dst = f
	}

	if v, ok := lookup(row, "bedtime"); ok {
		rec.Bedtime = strings.TrimSpace(fmt.Sprint(v))
	}
	if v, ok := lookup(row, "wakeTime"); ok {
		rec.WakeTime = strings.TrimSpace(fmt.Sprint(v))
	}
	return rec, nil
}

// toInt 容错的整数转换，小数截断
func toInt(v interface{}) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, fmt.Errorf("invalid number %v", val)
		}
		return int(val), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return int(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return 0, err
		}
		return int(f), nil
	case string:
		s := strings.TrimSpace(val)
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("cannot convert %q to int", val)
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}

func toFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case float64:
		return val, nil
	case json.Number:
		return val.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
}

func toBool(v interface{}) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case int:
		return val != 0, nil
	case int64:
		return val != 0, nil
	case float64:
		return val != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes", "y":
			return true, nil
		case "false", "0", "no", "n":
			return false, nil
		}
		return false, fmt.Errorf("cannot convert %q to bool", val)
	default:
		return false, fmt.Errorf("cannot convert %T to bool", v)
	}
}
