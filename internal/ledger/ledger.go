package ledger

import (
	"slices"
	"sort"
	"strings"
	"time"

	"sleepsense/internal/domain"
)

// DateLayout 账本日期格式
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// ParseDate 解析账本日期，支持常见的几种写法
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Canonical 可解析的日期统一成 DateLayout，其余原样返回
func Canonical(s string) string {
	if t, ok := ParseDate(s); ok {
		return t.Format(DateLayout)
	}
	return s
}

// dateKey 排序键，写入时解析一次
type dateKey struct {
	t  time.Time
	ok bool
	s  string
}

func keyOf(date string) dateKey {
	t, ok := ParseDate(date)
	return dateKey{t: t, ok: ok, s: date}
}

// compare 可解析的日期按时间排序，排在不可解析的之前；时间相同或不可解析时按字符串排序
// 键相等当且仅当日期字符串相同
func (a dateKey) compare(b dateKey) int {
	switch {
	case a.ok && b.ok:
		if c := a.t.Compare(b.t); c != 0 {
			return c
		}
	case a.ok:
		return -1
	case b.ok:
		return 1
	}
	return strings.Compare(a.s, b.s)
}

// Entry 账本条目，按日期唯一
type Entry interface {
	EntryDate() string
}

// Ledger 按日期唯一、升序排列的记录集合
// 同一日期写入时后写覆盖前写
type Ledger[T Entry] struct {
	items []T
	keys  []dateKey // 与 items 一一对应
}

// New 创建账本，按 Upsert 语义写入
func New[T Entry](items ...T) *Ledger[T] {
	l := &Ledger[T]{}
	l.UpsertAll(items...)
	return l
}

// Upsert 替换或按序插入
func (l *Ledger[T]) Upsert(item T) {
	k := keyOf(item.EntryDate())
	i, found := l.search(k)
	if found {
		l.items[i] = item
		return
	}
	l.items = slices.Insert(l.items, i, item)
	l.keys = slices.Insert(l.keys, i, k)
}

// UpsertAll 批量写入，同一日期后写覆盖前写，最后只排一次序
func (l *Ledger[T]) UpsertAll(items ...T) {
	if len(items) == 0 {
		return
	}
	pos := make(map[string]int, len(l.items)+len(items))
	for i, k := range l.keys {
		pos[k.s] = i
	}
	grown := false
	for _, it := range items {
		d := it.EntryDate()
		if i, ok := pos[d]; ok {
			l.items[i] = it
			continue
		}
		pos[d] = len(l.items)
		l.items = append(l.items, it)
		l.keys = append(l.keys, keyOf(d))
		grown = true
	}
	if grown {
		sort.Sort(byKey[T]{l})
	}
}

type byKey[T Entry] struct{ l *Ledger[T] }

func (b byKey[T]) Len() int           { return len(b.l.items) }
func (b byKey[T]) Less(i, j int) bool { return b.l.keys[i].compare(b.l.keys[j]) < 0 }
func (b byKey[T]) Swap(i, j int) {
	b.l.items[i], b.l.items[j] = b.l.items[j], b.l.items[i]
	b.l.keys[i], b.l.keys[j] = b.l.keys[j], b.l.keys[i]
}

// Update 原地修改指定日期的条目，不存在返回 false
// fn 不应修改条目的日期
func (l *Ledger[T]) Update(date string, fn func(*T)) bool {
	i, found := l.search(keyOf(date))
	if !found {
		return false
	}
	fn(&l.items[i])
	return true
}

// Get 按日期查找
func (l *Ledger[T]) Get(date string) (T, bool) {
	if i, found := l.search(keyOf(date)); found {
		return l.items[i], true
	}
	var zero T
	return zero, false
}

// Len 条目数
func (l *Ledger[T]) Len() int { return len(l.items) }

// Last 日期最新的一条
func (l *Ledger[T]) Last() (T, bool) {
	if len(l.items) == 0 {
		var zero T
		return zero, false
	}
	return l.items[len(l.items)-1], true
}

// Records 全部条目的副本
func (l *Ledger[T]) Records() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Recent 最近 n 条（按日期升序）的副本
func (l *Ledger[T]) Recent(n int) []T {
	if n <= 0 {
		return []T{}
	}
	start := len(l.items) - n
	if start < 0 {
		start = 0
	}
	out := make([]T, len(l.items)-start)
	copy(out, l.items[start:])
	return out
}

// Clone 深拷贝（条目为值类型）
func (l *Ledger[T]) Clone() *Ledger[T] {
	return &Ledger[T]{items: l.Records(), keys: slices.Clone(l.keys)}
}

// search 二分查找 k 的位置；未找到时返回插入点
func (l *Ledger[T]) search(k dateKey) (int, bool) {
	return slices.BinarySearchFunc(l.keys, k, dateKey.compare)
}

// Book 一个用户的全部账本
type Book struct {
	Daily     *Ledger[domain.DailyRecord]
	Lifestyle *Ledger[domain.LifestyleRecord]
	Calendar  map[string]domain.CalendarEntry
}

// NewBook 空账本
func NewBook() *Book {
	return &Book{
		Daily:     New[domain.DailyRecord](),
		Lifestyle: New[domain.LifestyleRecord](),
		Calendar:  make(map[string]domain.CalendarEntry),
	}
}

// Clone 深拷贝，导入时在副本上暂存
func (b *Book) Clone() *Book {
	cal := make(map[string]domain.CalendarEntry, len(b.Calendar))
	for k, v := range b.Calendar {
		cal[k] = v
	}
	return &Book{
		Daily:     b.Daily.Clone(),
		Lifestyle: b.Lifestyle.Clone(),
		Calendar:  cal,
	}
}
