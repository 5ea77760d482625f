// data.go
package processor

import (
	"time"
)

// 检验结果中表示失败的标签
const FailLabel = "FAIL"

// Record 单条VOC/检验记录
type Record struct {
	Date     time.Time // 事件日期(仅日期部分有效)
	HasDate  bool      // Date 是否解析成功
	Brand    string    // 品牌
	Category string    // 品类
	SKU      string    // 商品编号
	Result   string    // 检验结果 PASS/FAIL/其他
	VOCType  string    // 分类后的VOC类型，缺失时为空串
}

// RecordSet 只读的记录集合，过滤操作总是返回新的集合
type RecordSet struct {
	records    []Record
	hasVOCType bool
	failLabel  string
}

// NewRecordSet 基于记录切片创建集合(会复制一份，外部修改不影响集合)
func NewRecordSet(records []Record) *RecordSet {
	return NewRecordSetWithOptions(records, true, FailLabel)
}

// NewRecordSetWithOptions 创建集合
// 参数:
//   - hasVOCType: 源数据是否包含VOC类型列
//   - failLabel: 检验失败的标签
func NewRecordSetWithOptions(records []Record, hasVOCType bool, failLabel string) *RecordSet {
	cp := make([]Record, len(records))
	copy(cp, records)
	if failLabel == "" {
		failLabel = FailLabel
	}
	return &RecordSet{records: cp, hasVOCType: hasVOCType, failLabel: failLabel}
}

// derive 共享元数据，生成子集
func (rs *RecordSet) derive(records []Record) *RecordSet {
	return &RecordSet{records: records, hasVOCType: rs.hasVOCType, failLabel: rs.failLabel}
}

// Len 记录条数
func (rs *RecordSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.records)
}

// At 返回第i条记录的副本
func (rs *RecordSet) At(i int) Record {
	return rs.records[i]
}

// Records 返回记录副本
func (rs *RecordSet) Records() []Record {
	if rs == nil {
		return nil
	}
	cp := make([]Record, len(rs.records))
	copy(cp, rs.records)
	return cp
}

// HasVOCType 源数据是否包含VOC类型列
func (rs *RecordSet) HasVOCType() bool {
	return rs != nil && rs.hasVOCType
}

// IsFail 判断记录是否检验失败
func (rs *RecordSet) IsFail(r Record) bool {
	return r.Result == rs.failLabel
}
