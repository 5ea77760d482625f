package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
)

// Excel 序列号形式的日期，例如 45292 或 45292.5
var excelSerial = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// 支持的日期格式
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006/01/02 15:04:05",
	"2006.01.02",
	"2006.1.2",
	"2006-1-2",
	"01/02/2006",
}

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	return Contains(df.Names(), name)
}

// MissingColumns 返回DataFrame中缺少的列名
func MissingColumns(df dataframe.DataFrame, names ...string) []string {
	var missing []string
	for _, n := range names {
		if !HasColumn(df, n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// ParseDate 解析日期字符串，失败时返回错误(调用方按缺失处理)
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if excelSerial.MatchString(s) {
		days, err := strconv.ParseFloat(s, 64)
		if err == nil && days > 0 && days < 2958466 {
			return ExcelSerialToTime(days), nil
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ExcelSerialToTime excel时间序列号转time.Time
func ExcelSerialToTime(excelDays float64) time.Time {
	// 1899-12-30 为基准已包含了Excel的1900年闰年错误
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	days := int(excelDays)
	fraction := excelDays - float64(days)

	return base.AddDate(0, 0, days).
		Add(time.Duration(86400*fraction*1e9) * time.Nanosecond)
}

// TruncateDay 去掉时分秒，保留日历日期
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
