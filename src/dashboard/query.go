package dashboard

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"VocDashboard/src/processor"
	"VocDashboard/src/utils"
)

// 查询参数
const (
	ParamBrand    = "brand"
	ParamCategory = "category"
	ParamStart    = "start"
	ParamEnd      = "end"
)

// QueryError 查询参数无效
type QueryError struct {
	Param string
	Value string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("参数 %s 无效(%q): %v", e.Param, e.Value, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ParseSelection 由查询参数构造过滤条件
// 参数缺省时使用默认条件；参数存在但为空表示空选择
// 品牌/品类可重复出现，例如 brand=A&brand=B
func ParseSelection(q url.Values, rs *processor.RecordSet) (processor.Selection, error) {
	sel := processor.DefaultSelection(rs)

	if values, ok := q[ParamBrand]; ok {
		sel.Brands = splitValues(values)
	}
	if values, ok := q[ParamCategory]; ok {
		sel.Categories = splitValues(values)
	}

	start, hasStart, err := dateParam(q, ParamStart)
	if err != nil {
		return sel, err
	}
	end, hasEnd, err := dateParam(q, ParamEnd)
	if err != nil {
		return sel, err
	}
	if !hasStart && !hasEnd {
		return sel, nil
	}

	dates := processor.DateRange{Start: start, End: end}
	if sel.Dates != nil {
		if !hasStart {
			dates.Start = sel.Dates.Start
		}
		if !hasEnd {
			dates.End = sel.Dates.End
		}
	} else {
		// 数据中没有有效日期，另一端取同一天
		if !hasStart {
			dates.Start = end
		}
		if !hasEnd {
			dates.End = start
		}
	}
	sel.Dates = &dates
	return sel, nil
}

// EncodeSelection 过滤条件编码为查询参数，供导出链接使用
func EncodeSelection(sel processor.Selection) url.Values {
	q := url.Values{}
	q[ParamBrand] = joinOrEmpty(sel.Brands)
	q[ParamCategory] = joinOrEmpty(sel.Categories)
	if sel.Dates != nil {
		q.Set(ParamStart, sel.Dates.Start.Format("2006-01-02"))
		q.Set(ParamEnd, sel.Dates.End.Format("2006-01-02"))
	}
	return q
}

func joinOrEmpty(values []string) []string {
	if len(values) == 0 {
		return []string{""}
	}
	return values
}

// dateParam 参数缺省或为空串时 ok 为 false
func dateParam(q url.Values, name string) (time.Time, bool, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return time.Time{}, false, nil
	}
	t, err := utils.ParseDate(raw)
	if err != nil {
		return time.Time{}, false, &QueryError{Param: name, Value: raw, Err: err}
	}
	return utils.TruncateDay(t), true, nil
}

// splitValues 去掉空值与重复值，保持顺序
func splitValues(values []string) []string {
	out := []string{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" && !utils.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
