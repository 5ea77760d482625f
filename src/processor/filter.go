package processor

import (
	"time"

	"VocDashboard/src/utils"
)

// DateRange 闭区间日期范围，按自然日比较
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains 判断日期是否落在区间内(忽略时分秒)
func (d DateRange) Contains(t time.Time) bool {
	day := utils.TruncateDay(t)
	return !day.Before(utils.TruncateDay(d.Start)) && !day.After(utils.TruncateDay(d.End))
}

// Reversed 起始日期晚于结束日期
func (d DateRange) Reversed() bool {
	return utils.TruncateDay(d.Start).After(utils.TruncateDay(d.End))
}

// Selection 过滤条件
// Brands/Categories 为空时结果为空; Dates 为 nil 时不限制日期
type Selection struct {
	Brands     []string
	Categories []string
	Dates      *DateRange
}

// Filter 按品牌、品类、日期过滤，返回新的集合，原集合不变
func (rs *RecordSet) Filter(sel Selection) *RecordSet {
	if rs == nil {
		// 没有来源时也没有类型列，走势视图跳过
		return &RecordSet{failLabel: FailLabel}
	}
	if len(sel.Brands) == 0 || len(sel.Categories) == 0 {
		return rs.derive(nil)
	}
	if sel.Dates != nil && sel.Dates.Reversed() {
		return rs.derive(nil)
	}

	brands := toSet(sel.Brands)
	categories := toSet(sel.Categories)

	out := make([]Record, 0, len(rs.records))
	for _, r := range rs.records {
		if !brands[r.Brand] || !categories[r.Category] {
			continue
		}
		if sel.Dates != nil {
			// 日期缺失的记录不满足任何有界比较
			if !r.HasDate || !sel.Dates.Contains(r.Date) {
				continue
			}
		}
		out = append(out, r)
	}
	return rs.derive(out)
}

// FilteredRecordSet 看板使用的过滤入口
func FilteredRecordSet(rs *RecordSet, brands, categories []string, dates DateRange) *RecordSet {
	return rs.Filter(Selection{Brands: brands, Categories: categories, Dates: &dates})
}

// DefaultSelection 未交互时的默认条件：全部品牌、全部品类、[最早日期, 最晚日期]
func DefaultSelection(rs *RecordSet) Selection {
	sel := Selection{
		Brands:     DistinctBrands(rs),
		Categories: DistinctCategories(rs),
	}
	if minDate, maxDate, ok := DateBounds(rs); ok {
		sel.Dates = &DateRange{Start: minDate, End: maxDate}
	}
	return sel
}

// DistinctBrands 按首次出现顺序返回非空品牌
func DistinctBrands(rs *RecordSet) []string {
	return distinct(rs, func(r Record) string { return r.Brand })
}

// DistinctCategories 按首次出现顺序返回非空品类
func DistinctCategories(rs *RecordSet) []string {
	return distinct(rs, func(r Record) string { return r.Category })
}

// DateBounds 有效日期的最小值和最大值
func DateBounds(rs *RecordSet) (minDate, maxDate time.Time, ok bool) {
	for _, r := range rs.Records() {
		if !r.HasDate {
			continue
		}
		if !ok || r.Date.Before(minDate) {
			minDate = r.Date
		}
		if !ok || r.Date.After(maxDate) {
			maxDate = r.Date
		}
		ok = true
	}
	return minDate, maxDate, ok
}

func distinct(rs *RecordSet, key func(Record) string) []string {
	seen := make(map[string]bool)
	out := []string{}
	if rs == nil {
		return out
	}
	for _, r := range rs.records {
		k := key(r)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		// 缺失值不参与成员匹配
		if v == "" {
			continue
		}
		set[v] = true
	}
	return set
}
