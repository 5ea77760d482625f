package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/korean"

	"VocDashboard/src/config"
	"VocDashboard/src/processor"
)

const sampleCSV = "Date,브랜드,카테고리,SKU,검수결과,분류된유형\n" +
	"2024-01-03,A,상의,SKU-1,FAIL,사이즈\n" +
	"2024-01-10,A,상의,SKU-1,PASS,\n" +
	"not-a-date,B,하의,SKU-2,PASS,오염\n" +
	"2024-02-01 09:30:00,B,하의,,FAIL,배송\n"

func newLoader(path string) *CSVLoader {
	_, dcfg := config.Default()
	cfg, _ := config.Default()
	cfg.DataPath = path
	return NewLoader(cfg, dcfg)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoadCSVWithBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(sampleCSV)...)
	path := writeFile(t, "voc.csv", data)

	rs, err := newLoader(path).Load()
	require.NoError(t, err)
	require.Equal(t, 4, rs.Len())
	assert.True(t, rs.HasVOCType())

	first := rs.At(0)
	assert.True(t, first.HasDate)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "A", first.Brand)
	assert.Equal(t, "상의", first.Category)
	assert.Equal(t, "FAIL", first.Result)
	assert.Equal(t, "사이즈", first.VOCType)

	assert.Equal(t, "", rs.At(1).VOCType, "空单元格为缺失")
	assert.False(t, rs.At(2).HasDate, "无法解析的日期按缺失处理")
	assert.Equal(t, "B", rs.At(2).Brand)

	last := rs.At(3)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), last.Date)
	assert.Equal(t, "", last.SKU)
}

func TestLoadCSVEUCKR(t *testing.T) {
	encoded, err := korean.EUCKR.NewEncoder().String(sampleCSV)
	require.NoError(t, err)
	path := writeFile(t, "voc.csv", []byte(encoded))

	loader := newLoader(path)
	loader.Encoding = "euc-kr"
	rs, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "상의", rs.At(0).Category)
}

func TestLoadCSVRaggedRows(t *testing.T) {
	data := "Date,브랜드,카테고리,SKU,검수결과,분류된유형\n" +
		"2024-01-01,A,상의,SKU-1,FAIL,사이즈\n" +
		"2024-01-02,B,하의,S2\n" +
		"2024-01-03,B,하의,SKU-3,PASS,오염,extra\n"
	path := writeFile(t, "voc.csv", []byte(data))

	rs, err := newLoader(path).Load()
	require.NoError(t, err)
	require.Equal(t, 3, rs.Len())

	short := rs.At(1)
	assert.Equal(t, "B", short.Brand)
	assert.Equal(t, "S2", short.SKU)
	assert.Equal(t, "", short.Result, "缺少的字段按缺失处理")
	assert.Equal(t, "", short.VOCType)
	assert.True(t, short.HasDate)

	assert.Equal(t, "오염", rs.At(2).VOCType, "多出的字段被丢弃")
	assert.Equal(t, 1, processor.TotalCount(rs.Filter(processor.Selection{
		Brands:     []string{"A"},
		Categories: []string{"상의"},
	})))
}

func TestLoadHeaderOnlyCSV(t *testing.T) {
	path := writeFile(t, "voc.csv", []byte("\uFEFFDate,브랜드,카테고리,SKU,검수결과,분류된유형\n"))

	rs, err := newLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())
	assert.True(t, rs.HasVOCType())

	sum := processor.Summarize(rs)
	assert.Equal(t, 0, sum.Total)
	assert.False(t, sum.FailureRate.Defined)
	assert.Equal(t, processor.NoneLabel, sum.DominantType)
	assert.Empty(t, sum.TopSKUs)
}

func TestLoadHeaderOnlyCSVMissingColumns(t *testing.T) {
	path := writeFile(t, "voc.csv", []byte("Date,SKU\n"))

	_, err := newLoader(path).Load()
	var schemaErr *SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestLoadEmptyCSV(t *testing.T) {
	path := writeFile(t, "voc.csv", nil)

	_, err := newLoader(path).Load()
	var accessErr *FileAccessError
	assert.True(t, errors.As(err, &accessErr))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := newLoader(filepath.Join(t.TempDir(), "absent.csv")).Load()
	require.Error(t, err)

	var accessErr *FileAccessError
	require.True(t, errors.As(err, &accessErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadMissingColumns(t *testing.T) {
	path := writeFile(t, "voc.csv", []byte("Date,SKU,검수결과\n2024-01-01,SKU-1,PASS\n"))

	_, err := newLoader(path).Load()
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"브랜드", "카테고리", "분류된유형"}, schemaErr.Missing)
}

func TestLoadWithoutVOCTypeColumn(t *testing.T) {
	path := writeFile(t, "voc.csv", []byte("Date,브랜드,카테고리,SKU,검수결과\n2024-01-01,A,상의,SKU-1,PASS\n"))

	loader := newLoader(path)
	loader.Columns.VOCType = ""
	rs, err := loader.Load()
	require.NoError(t, err)
	assert.False(t, rs.HasVOCType())

	_, ok := processor.MonthlyTrend(rs)
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	loader := newLoader(filepath.Join(t.TempDir(), "voc.csv"))

	assert.NoError(t, loader.Validate([]byte(sampleCSV)))

	err := loader.Validate([]byte("Date,SKU\n2024-01-01,SKU-1\n"))
	var schemaErr *SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestUnsupportedEncoding(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(sampleCSV), "latin-9")
	assert.Error(t, err)
}

func TestLoadXLSX(t *testing.T) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sheet1")
	require.NoError(t, err)
	rows := [][]string{
		{"Date", "브랜드", "카테고리", "SKU", "검수결과", "분류된유형"},
		{"45296", "A", "상의", "SKU-1", "FAIL", "사이즈"},
		{"2024-02-01", "B", "하의", "SKU-2", "PASS", "오염"},
	}
	for _, values := range rows {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().Value = v
		}
	}
	path := filepath.Join(t.TempDir(), "voc.xlsx")
	require.NoError(t, file.Save(path))

	rs, err := newLoader(path).Load()
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), rs.At(0).Date)
	assert.Equal(t, "오염", rs.At(1).VOCType)
}

func TestFileMonitor(t *testing.T) {
	path := writeFile(t, "voc.csv", []byte(sampleCSV))

	monitor, err := NewFileMonitor(path)
	require.NoError(t, err)
	defer monitor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	go monitor.Watch(ctx, func(name string) {
		select {
		case changed <- name:
		default:
		}
	})

	// 同目录的其他文件不触发
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.csv"), []byte("x"), 0644))

	time.Sleep(10 * time.Millisecond)
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV+"2024-03-01,A,상의,SKU-3,PASS,배송\n"), 0644))
	require.NoError(t, os.Chtimes(path, later, later))

	select {
	case name := <-changed:
		assert.Equal(t, filepath.Clean(path), filepath.Clean(name))
	case <-time.After(3 * time.Second):
		t.Fatal("monitor did not report change")
	}
}
