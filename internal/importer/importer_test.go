package importer

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"sleepsense/internal/domain"
	"sleepsense/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
}

func newTestImporter(strict bool) *Importer {
	return New(Options{Strict: strict}, fixedNow)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat(" csv ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestImport_EmptyObjectUsesDefaults(t *testing.T) {
	im := newTestImporter(false)
	book, n, err := im.Import(ledger.NewBook(), `{}`, FormatJSON)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	rec, ok := book.Daily.Last()
	require.True(t, ok)
	assert.Equal(t, domain.DailyRecord{
		Date:      "2024-03-01",
		Quality:   75,
		HeartRate: 65,
		SpO2:      98,
		Motion:    10,
		Snoring:   3,
		Duration:  420,
		DeepSleep: 120,
		Apnea:     false,
	}, rec)
	assert.Equal(t, domain.CalendarEntry{Quality: 75, Type: domain.SleepTypeNormal, Duration: "7h 0m"}, book.Calendar["2024-03-01"])
	assert.Equal(t, 0, book.Lifestyle.Len())
}

func TestImport_AliasEquivalence(t *testing.T) {
	im := newTestImporter(false)
	a, _, err := im.Import(ledger.NewBook(), map[string]interface{}{
		"date": "2024-01-01", "sleepQuality": 90.0, "bpm": 58.0, "oxygenSaturation": 97.0,
		"movement": 4.0, "snoreLevel": 2.0, "sleepDuration": 480.0, "deepSleepDuration": 150.0, "apneaDetected": true,
	}, FormatJSON)
	require.NoError(t, err)
	b, _, err := im.Import(ledger.NewBook(), map[string]interface{}{
		"date": "2024-01-01", "quality": 90.0, "heartRate": 58.0, "spo2": 97.0,
		"motion": 4.0, "snoring": 2.0, "duration": 480.0, "deepSleep": 150.0, "apnea": true,
	}, FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, a.Daily.Records(), b.Daily.Records())
}

func TestImport_FirstAliasWins(t *testing.T) {
	im := newTestImporter(false)
	book, _, err := im.Import(ledger.NewBook(), `{"date":"2024-01-01","sleepQuality":91,"quality":40}`, FormatJSON)
	require.NoError(t, err)
	rec, _ := book.Daily.Get("2024-01-01")
	assert.Equal(t, 91, rec.Quality)
}

func TestImport_ZeroIsAValue(t *testing.T) {
	im := newTestImporter(false)
	book, _, err := im.Import(ledger.NewBook(), `{"date":"2024-01-01","motion":0,"snoring":0}`, FormatJSON)
	require.NoError(t, err)
	rec, _ := book.Daily.Get("2024-01-01")
	assert.Equal(t, 0, rec.Motion)
	assert.Equal(t, 0, rec.Snoring)
}

func TestImport_ReimportSameDateLastWriteWins(t *testing.T) {
	im := newTestImporter(false)
	book, _, err := im.Import(ledger.NewBook(), `{"date":"2024-01-05","quality":60}`, FormatJSON)
	require.NoError(t, err)
	book, _, err = im.Import(book, `{"date":"2024-01-05","quality":88}`, FormatJSON)
	require.NoError(t, err)

	require.Equal(t, 1, book.Daily.Len())
	rec, _ := book.Daily.Get("2024-01-05")
	assert.Equal(t, 88, rec.Quality)
}

func TestImport_SameDayDifferentLayoutsCollapse(t *testing.T) {
	im := newTestImporter(false)
	book, n, err := im.Import(ledger.NewBook(), `[
		{"date":"2024-01-05","duration":400},
		{"date":"2024/01/05","duration":450},
		{"date":"2024-01-05T00:00:00Z","duration":480,"caffeine":2}
	]`, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Equal(t, 1, book.Daily.Len())
	rec, ok := book.Daily.Get("2024-01-05")
	require.True(t, ok)
	assert.Equal(t, 480, rec.Duration)
	assert.Len(t, book.Calendar, 1)
	assert.Contains(t, book.Calendar, "2024-01-05")
	require.Equal(t, 1, book.Lifestyle.Len())

	// 后续导入换一种写法仍命中同一条
	book, _, err = im.Import(book, `{"date":"01/05/2024","duration":500}`, FormatJSON)
	require.NoError(t, err)
	require.Equal(t, 1, book.Daily.Len())
	rec, _ = book.Daily.Get("2024-01-05")
	assert.Equal(t, 500, rec.Duration)
}

func TestImport_LargeCSVWithinBound(t *testing.T) {
	const n = 5000
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	var b strings.Builder
	b.WriteString("date,quality,duration\n")
	for i := n - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "%s,%d,%d\n", base.AddDate(0, 0, i).Format(ledger.DateLayout), i%100, 300+i%200)
	}

	im := newTestImporter(false)
	start := time.Now()
	book, count, err := im.Import(ledger.NewBook(), b.String(), FormatCSV)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, n, count)
	assert.Less(t, elapsed, 2*time.Second)
	require.Equal(t, n, book.Daily.Len())
	assert.Len(t, book.Calendar, n)

	recs := book.Daily.Records()
	assert.Equal(t, base.Format(ledger.DateLayout), recs[0].Date)
	assert.Equal(t, base.AddDate(0, 0, n-1).Format(ledger.DateLayout), recs[n-1].Date)
	for i := 1; i < len(recs); i++ {
		if recs[i-1].Date >= recs[i].Date {
			t.Fatalf("records out of order at %d: %s >= %s", i, recs[i-1].Date, recs[i].Date)
		}
	}
}

func TestImport_ArraySortedAscending(t *testing.T) {
	im := newTestImporter(false)
	book, n, err := im.Import(ledger.NewBook(), `[
		{"date":"2024-01-15","quality":85},
		{"date":"2024-01-09","quality":94},
		{"date":"2024-01-12","quality":68}
	]`, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var got []string
	for _, r := range book.Daily.Records() {
		got = append(got, r.Date)
	}
	assert.Equal(t, []string{"2024-01-09", "2024-01-12", "2024-01-15"}, got)
}

func TestImport_CSV(t *testing.T) {
	im := newTestImporter(false)
	csv := "date, quality, heartRate, spo2, motion, snoring, duration, deepSleep, apnea\n" +
		"2024-01-10, 76, 66, 96, 14, 6, 418, 105, false\r\n" +
		"\n" +
		"   \n" +
		"2024-01-09,94,61,98,6,1,502,178,true\n"
	book, n, err := im.Import(ledger.NewBook(), csv, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recs := book.Daily.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, domain.DailyRecord{Date: "2024-01-09", Quality: 94, HeartRate: 61, SpO2: 98, Motion: 6, Snoring: 1, Duration: 502, DeepSleep: 178, Apnea: true}, recs[0])
	assert.Equal(t, domain.DailyRecord{Date: "2024-01-10", Quality: 76, HeartRate: 66, SpO2: 96, Motion: 14, Snoring: 6, Duration: 418, DeepSleep: 105, Apnea: false}, recs[1])
}

func TestImport_CSVShortRowUsesDefaults(t *testing.T) {
	im := newTestImporter(false)
	book, _, err := im.Import(ledger.NewBook(), "date,quality,heartRate\n2024-01-10,80\n", FormatCSV)
	require.NoError(t, err)
	rec, _ := book.Daily.Get("2024-01-10")
	assert.Equal(t, 80, rec.Quality)
	assert.Equal(t, 65, rec.HeartRate)
}

func TestImport_EmptyCSVIsNoop(t *testing.T) {
	im := newTestImporter(false)
	orig := ledger.NewBook()
	orig.Daily.Upsert(domain.DailyRecord{Date: "2024-01-01"})

	for _, in := range []string{"", "   \n\t\n", "date,quality\n"} {
		book, n, err := im.Import(orig, in, FormatCSV)
		require.NoError(t, err, in)
		assert.Equal(t, 0, n)
		assert.Same(t, orig, book)
	}
}

func TestImport_LifestyleMerged(t *testing.T) {
	im := newTestImporter(false)
	book, _, err := im.Import(ledger.NewBook(), `[
		{"date":"2024-01-15","caffeine":2,"screenTime":6},
		{"date":"2024-01-14","exercise":30,"bedtime":"23:15"},
		{"date":"2024-01-13","quality":80}
	]`, FormatJSON)
	require.NoError(t, err)
	require.Equal(t, 2, book.Lifestyle.Len())

	l, ok := book.Lifestyle.Get("2024-01-15")
	require.True(t, ok)
	assert.Equal(t, domain.LifestyleRecord{Date: "2024-01-15", Caffeine: 2, ScreenTime: 6, Bedtime: "22:30", WakeTime: "06:30"}, l)

	l, _ = book.Lifestyle.Get("2024-01-14")
	assert.Equal(t, 30.0, l.Exercise)
	assert.Equal(t, "23:15", l.Bedtime)
}

func TestImport_CalendarUsesCalendarThreshold(t *testing.T) {
	im := newTestImporter(false)
	book, _, err := im.Import(ledger.NewBook(), `{"date":"2024-01-14","quality":72,"spo2":97,"motion":18,"snoring":5,"duration":405}`, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, domain.CalendarEntry{Quality: 72, Type: domain.SleepTypeRestless, Duration: "6h 45m"}, book.Calendar["2024-01-14"])
}

func TestImport_UnsupportedFormat(t *testing.T) {
	im := newTestImporter(false)
	_, _, err := im.Import(ledger.NewBook(), `{}`, Format("xml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestImport_ParseErrors(t *testing.T) {
	im := newTestImporter(false)
	tests := []struct {
		name   string
		raw    interface{}
		format Format
	}{
		{"malformed json", `{"quality":`, FormatJSON},
		{"scalar json", `42`, FormatJSON},
		{"array of scalars", `[1,2]`, FormatJSON},
		{"nil input", nil, FormatJSON},
		{"csv from object", map[string]interface{}{}, FormatCSV},
		{"csv bare quote", "date,quality\n20\"24-01-01,80\n", FormatCSV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := im.Import(ledger.NewBook(), tt.raw, tt.format)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, tt.format, pe.Format)
		})
	}
}

func TestImport_StagedAtomicity(t *testing.T) {
	im := newTestImporter(true)
	orig := ledger.NewBook()
	orig.Daily.Upsert(domain.DailyRecord{Date: "2024-01-01", Quality: 50})

	full := `"quality":80,"heartRate":60,"spo2":97,"motion":5,"snoring":2,"duration":450,"deepSleep":120,"apnea":false`
	raw := `[{"date":"2024-01-02",` + full + `},{"date":"2024-01-03","quality":500}]`
	book, n, err := im.Import(orig, raw, FormatJSON)
	require.Error(t, err)
	assert.Nil(t, book)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, orig.Daily.Len(), "live ledger untouched")
	assert.Empty(t, orig.Calendar)
}

func TestNormalize_Strict(t *testing.T) {
	im := newTestImporter(true)
	base := func() map[string]interface{} {
		return map[string]interface{}{
			"date": "2024-01-01", "quality": 80.0, "heartRate": 60.0, "spo2": 97.0,
			"motion": 5.0, "snoring": 2.0, "duration": 450.0, "deepSleep": 120.0, "apnea": false,
		}
	}

	_, _, err := im.Normalize(0, base())
	require.NoError(t, err)

	tests := []struct {
		name  string
		edit  func(map[string]interface{})
		field string
	}{
		{"missing quality", func(m map[string]interface{}) { delete(m, "quality") }, "quality"},
		{"missing date", func(m map[string]interface{}) { delete(m, "date") }, "date"},
		{"bad date", func(m map[string]interface{}) { m["date"] = "yesterday" }, "date"},
		{"non numeric", func(m map[string]interface{}) { m["heartRate"] = "fast" }, "heartRate"},
		{"quality range", func(m map[string]interface{}) { m["quality"] = 101.0 }, "quality"},
		{"spo2 range", func(m map[string]interface{}) { m["spo2"] = -1.0 }, "spo2"},
		{"snoring range", func(m map[string]interface{}) { m["snoring"] = 11.0 }, "snoring"},
		{"negative motion", func(m map[string]interface{}) { m["motion"] = -3.0 }, "motion"},
		{"negative duration", func(m map[string]interface{}) { m["duration"] = -1.0 }, "duration"},
		{"bad apnea", func(m map[string]interface{}) { m["apnea"] = "maybe" }, "apnea"},
		{"bad caffeine", func(m map[string]interface{}) { m["caffeine"] = "lots" }, "caffeine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := base()
			tt.edit(row)
			_, _, err := im.Normalize(3, row)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, 3, ve.Index)
		})
	}
}

func TestNormalize_LenientCoercion(t *testing.T) {
	im := newTestImporter(false)
	rec, _, err := im.Normalize(0, map[string]interface{}{
		"date":      " 2024-01-01 ",
		"quality":   "88",
		"heartRate": "fast",
		"spo2":      96.7,
		"duration":  "",
		"apnea":     "true",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", rec.Date)
	assert.Equal(t, 88, rec.Quality)
	assert.Equal(t, 65, rec.HeartRate, "uncoercible value falls back to default")
	assert.Equal(t, 96, rec.SpO2, "fractions are truncated")
	assert.Equal(t, 420, rec.Duration, "blank value counts as absent")
	assert.True(t, rec.Apnea)
}

func TestNormalize_NonStringDateLenient(t *testing.T) {
	im := newTestImporter(false)
	rec, _, err := im.Normalize(0, map[string]interface{}{"date": 20240101.0})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", rec.Date)
}
