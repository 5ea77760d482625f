// reader.go
package file

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"VocDashboard/src/config"
	"VocDashboard/src/processor"
	"VocDashboard/src/utils"
)

// 视为缺失值的单元格内容
var nanValues = []string{"", "NA", "NaN", "nan", "<nil>", "null"}

// CSVLoader 从固定路径读取合并后的VOC检验数据
// 扩展名为 .xlsx 时按Excel读取
type CSVLoader struct {
	Path      string
	SheetName string
	Columns   config.Columns
	Encoding  string
	FailLabel string
}

// NewLoader 根据配置创建加载器
func NewLoader(cfg *config.Config, dcfg *config.DataConfig) *CSVLoader {
	return &CSVLoader{
		Path:      cfg.DataPath,
		SheetName: cfg.SheetName,
		Columns:   dcfg.Columns,
		Encoding:  dcfg.Encoding,
		FailLabel: dcfg.FailLabel,
	}
}

// Load 实现 storage.Loader
func (l *CSVLoader) Load() (*processor.RecordSet, error) {
	df, err := l.readDataFrame()
	if err != nil {
		return nil, err
	}
	return ToRecordSet(df, l.Columns, l.FailLabel, l.Path)
}

// Validate 校验CSV内容能否按当前列配置加载，用于替换数据文件之前
func (l *CSVLoader) Validate(data []byte) error {
	df, err := ReadCSV(bytes.NewReader(data), l.Encoding)
	if err != nil {
		return err
	}
	_, err = ToRecordSet(df, l.Columns, l.FailLabel, l.Path)
	return err
}

func (l *CSVLoader) readDataFrame() (dataframe.DataFrame, error) {
	if strings.EqualFold(filepath.Ext(l.Path), ".xlsx") {
		df, err := ReadXLSX(l.Path, l.SheetName)
		if err != nil {
			return df, &FileAccessError{Path: l.Path, Err: err}
		}
		return df, nil
	}

	f, err := os.Open(l.Path)
	if err != nil {
		return dataframe.DataFrame{}, &FileAccessError{Path: l.Path, Err: err}
	}
	defer f.Close()

	df, err := ReadCSV(f, l.Encoding)
	if err != nil {
		return df, &FileAccessError{Path: l.Path, Err: err}
	}
	return df, nil
}

// ReadCSV 读取CSV为全字符串列的DataFrame
// 文件开头的UTF-8 BOM会被去掉(等同utf-8-sig)
// 字段数与标题行不一致的行补空或截断，缺少的单元格按缺失处理
func ReadCSV(r io.Reader, encoding string) (dataframe.DataFrame, error) {
	dec, err := decoderFor(encoding)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(dec)))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("解析CSV失败: %w", err)
	}
	if len(records) == 0 {
		return dataframe.DataFrame{}, errors.New("解析CSV失败: 文件为空")
	}

	df, err := recordsToDataFrame(records)
	if err != nil {
		return df, fmt.Errorf("解析CSV失败: %w", err)
	}
	return df, nil
}

// ReadXLSX 读取工作表，第一行为标题行
func ReadXLSX(filePath, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open file false: %w", err)
	}
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, errors.New("excel文件中没有工作表")
	}

	sheet, ok := xlFile.Sheet[sheetName]
	if !ok {
		sheet = xlFile.Sheets[0]
	}
	return convertSheetToDataFrame(sheet)
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
func convertSheetToDataFrame(sheet *xlsx.Sheet) (dataframe.DataFrame, error) {
	if len(sheet.Rows) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("工作表 %s 为空", sheet.Name)
	}

	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		record := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			record = append(record, cell.Value)
		}
		records = append(records, record)
	}

	df, err := recordsToDataFrame(records)
	if err != nil {
		return df, fmt.Errorf("转换为dataframe失败: %w", err)
	}
	return df, nil
}

// recordsToDataFrame 第一行为标题行，其余行补齐或截断到标题的列数
// 只有标题行时返回0行的DataFrame
func recordsToDataFrame(records [][]string) (dataframe.DataFrame, error) {
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	if len(records) == 1 {
		columns := make([]series.Series, len(headers))
		for i, h := range headers {
			columns[i] = series.New([]string{}, series.String, h)
		}
		df := dataframe.New(columns...)
		return df, df.Err
	}

	normalized := make([][]string, 0, len(records))
	normalized = append(normalized, headers)
	for _, row := range records[1:] {
		record := make([]string, len(headers))
		copy(record, row) // 多出的字段丢弃
		normalized = append(normalized, record)
	}

	df := dataframe.LoadRecords(normalized, loadOptions()...)
	return df, df.Err
}

func loadOptions() []dataframe.LoadOption {
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
	}
}

func decoderFor(name string) (transform.Transformer, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "utf-8", "utf8", "utf-8-sig":
		return unicode.UTF8.NewDecoder(), nil
	case "euc-kr", "euckr", "cp949":
		return korean.EUCKR.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("不支持的编码: %s", name)
	}
}

// ToRecordSet 校验列并将DataFrame转为记录集合
// 无法解析的日期按缺失处理，行本身保留
func ToRecordSet(df dataframe.DataFrame, cols config.Columns, failLabel, path string) (*processor.RecordSet, error) {
	if missing := utils.MissingColumns(df, cols.Required()...); len(missing) > 0 {
		return nil, &SchemaError{Path: path, Missing: missing}
	}

	dates := columnValues(df, cols.Date)
	brands := columnValues(df, cols.Brand)
	categories := columnValues(df, cols.Category)
	skus := columnValues(df, cols.SKU)
	results := columnValues(df, cols.Result)

	hasVOCType := cols.VOCType != ""
	var types []string
	if hasVOCType {
		types = columnValues(df, cols.VOCType)
	}

	records := make([]processor.Record, df.Nrow())
	for i := range records {
		r := processor.Record{
			Brand:    brands[i],
			Category: categories[i],
			SKU:      skus[i],
			Result:   results[i],
		}
		if hasVOCType {
			r.VOCType = types[i]
		}
		if t, err := utils.ParseDate(dates[i]); err == nil {
			r.Date = utils.TruncateDay(t)
			r.HasDate = true
		}
		records[i] = r
	}

	return processor.NewRecordSetWithOptions(records, hasVOCType, failLabel), nil
}

// columnValues 取出列的字符串值，缺失值统一为空串
func columnValues(df dataframe.DataFrame, name string) []string {
	col := df.Col(name)
	values := col.Records()
	isNaN := col.IsNaN()
	out := make([]string, len(values))
	for i, v := range values {
		if i < len(isNaN) && isNaN[i] {
			continue
		}
		v = strings.TrimSpace(v)
		if utils.Contains(nanValues, v) {
			continue
		}
		out[i] = v
	}
	return out
}
