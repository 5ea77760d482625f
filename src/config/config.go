package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// 环境变量前缀，例如 VOC_DATAPATH
const EnvPrefix = "VOC"

// Config 结构体定义了应用程序的配置结构
type Config struct {
	DataPath   string `json:"data_path"`    // 合并后的VOC检验数据文件
	SheetName  string `json:"sheet_name"`   // 数据为xlsx时读取的工作表
	Listen     string `json:"listen"`       // 看板监听地址
	LogName    string `json:"log_name"`     // 日志文件
	LogMaxSize string `json:"log_max_size"` // 日志轮转大小，如 "10 * 1024 * 1024"
	WatchData  bool   `json:"watch_data"`   // 数据文件变化时自动重新加载

	Report struct {
		Dir      string `json:"dir"`      // 报表输出目录
		Schedule string `json:"schedule"` // cron表达式，为空时不生成
	} `json:"report"`

	Email struct {
		Enabled       bool     `json:"enabled"`
		Server        string   `json:"server"`         // 邮件服务器地址
		Username      string   `json:"username"`       // 邮箱用户名
		Password      string   `json:"password"`       // 邮箱密码
		TargetSubject string   `json:"target_subject"` // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval"` // 检查新邮件的间隔时间
	} `json:"email"`

	SendEmail struct {
		Enabled  bool     `json:"enabled"`
		Server   string   `json:"server"`   // SMTP服务器地址
		Username string   `json:"username"` // 发件人
		Password string   `json:"password"` // 密码/授权码
		To       []string `json:"to"`       // 收件人
		Subject  string   `json:"subject"`  // 报表邮件主题
	} `json:"send_email"`
}

// DataConfig 数据列与业务常量
type DataConfig struct {
	Columns   Columns `json:"columns"`
	Encoding  string  `json:"encoding"`   // utf-8 或 euc-kr
	FailLabel string  `json:"fail_label"` // 检验失败标签
	TopN      int     `json:"top_n"`      // 排行榜条数
}

// Columns 数据文件中的列名
type Columns struct {
	Date     string `json:"date"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
	SKU      string `json:"sku"`
	Result   string `json:"result"`
	VOCType  string `json:"voc_type"`
}

// Required 必须存在的列，VOCType 配置为空串时不要求
func (c Columns) Required() []string {
	cols := []string{c.Date, c.Brand, c.Category, c.SKU, c.Result}
	if c.VOCType != "" {
		cols = append(cols, c.VOCType)
	}
	return cols
}

// DefaultColumns 原始数据集使用的列名
func DefaultColumns() Columns {
	return Columns{
		Date:     "Date",
		Brand:    "브랜드",
		Category: "카테고리",
		SKU:      "SKU",
		Result:   "검수결과",
		VOCType:  "분류된유형",
	}
}

// Default 默认配置
func Default() (*Config, *DataConfig) {
	cfg := &Config{
		DataPath:   "./data/merged_voc_inspection_product.csv",
		SheetName:  "Sheet1",
		Listen:     ":8080",
		LogName:    "app.log",
		LogMaxSize: "10 * 1024 * 1024",
	}
	cfg.Report.Dir = "./report"
	cfg.Email.CheckInterval = Duration(5 * time.Minute)
	cfg.SendEmail.Subject = "VOC 검수 리포트"

	dcfg := &DataConfig{
		Columns:   DefaultColumns(),
		Encoding:  "utf-8",
		FailLabel: "FAIL",
		TopN:      5,
	}
	return cfg, dcfg
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	loadErr            error
)

// LoadConfig 只加载一次配置，之后返回同一实例
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	once.Do(func() {
		instance, dataConfigInstance, loadErr = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, loadErr
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	// 环境变量覆盖文件配置
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	cfg, _ := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	_, dcfg := Default()
	if err := json.Unmarshal(data, dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	if dcfg.TopN <= 0 {
		errChan <- fmt.Errorf("解析DataConfig失败: top_n 必须大于0")
		return
	}
	resultChan <- dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON和环境变量中的 "5m" 写法
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.Decode(s)
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Decode 实现envconfig.Decoder接口
func (d *Duration) Decode(value string) error {
	dur, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// String 例如 "5m0s"
func (d Duration) String() string {
	return time.Duration(d).String()
}
