package config

import (
	"errors"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Search   SearchConfig   `yaml:"search"`
	Agent    AgentConfig    `yaml:"agent"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
}

type DatabaseConfig struct {
	Type string `yaml:"type"` // sqlite, mysql
	DSN  string `yaml:"dsn"`
}

type LLMConfig struct {
	APIURL        string `yaml:"api_url"`
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	MaxTokens     int    `yaml:"max_tokens"`
	MaxConcurrent int    `yaml:"max_concurrent"` // 出站请求并发上限
}

type SearchConfig struct {
	APIURL     string `yaml:"api_url"`
	APIKey     string `yaml:"api_key"`
	MaxResults int    `yaml:"max_results"`
}

// AgentConfig 决策管线的行为参数。
// 阈值均为经验值，可按需调整，代码不对其精确取值附加语义。
type AgentConfig struct {
	IntentHistoryWindow   int `yaml:"intent_history_window"`   // Stage 1 参考的最近消息数
	DecisionHistoryWindow int `yaml:"decision_history_window"` // Stage 2 参考的最近消息数
	DocumentPreviewLimit  int `yaml:"document_preview_limit"`  // 文档内容截断阈值（字符数）

	SectionLossErrorPct float64 `yaml:"section_loss_error_pct"` // 丢失章节占比超过此值判为错误
	HeadingCountFloor   float64 `yaml:"heading_count_floor"`    // 新文档标题数量下限（原标题数的比例）
	LengthFloor         float64 `yaml:"length_floor"`           // 新文档长度下限（原长度的比例）

	SearchRetryEnabled     bool    `yaml:"search_retry_enabled"`
	SearchMaxRetries       int     `yaml:"search_max_retries"`
	SearchEvaluateResults  bool    `yaml:"search_evaluate_results"`
	SearchSummarizeResults bool    `yaml:"search_summarize_results"`
	SearchMinQualityScore  float64 `yaml:"search_min_quality_score"`
	SearchMinResultLength  int     `yaml:"search_min_result_length"`

	IntentTemperature        float64 `yaml:"intent_temperature"`
	DecisionTemperature      float64 `yaml:"decision_temperature"`
	RewriteTemperature       float64 `yaml:"rewrite_temperature"`
	EvaluationTemperature    float64 `yaml:"evaluation_temperature"`
	SummarizationTemperature float64 `yaml:"summarization_temperature"`
}

var (
	cfg  *Config
	once sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		cfg = loadConfig()
	})
	return cfg
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			DSN:  "./data/app.db",
		},
		LLM: LLMConfig{
			APIURL:        "https://api.openai.com/v1",
			Model:         "gpt-4o",
			MaxTokens:     4096,
			MaxConcurrent: 10,
		},
		Search: SearchConfig{
			APIURL:     "https://api.tavily.com/search",
			MaxResults: 5,
		},
		Agent: AgentConfig{
			IntentHistoryWindow:      20,
			DecisionHistoryWindow:    10,
			DocumentPreviewLimit:     2000,
			SectionLossErrorPct:      10,
			HeadingCountFloor:        0.8,
			LengthFloor:              0.1,
			SearchRetryEnabled:       true,
			SearchMaxRetries:         2,
			SearchEvaluateResults:    true,
			SearchSummarizeResults:   true,
			SearchMinQualityScore:    0.6,
			SearchMinResultLength:    100,
			IntentTemperature:        0.3,
			DecisionTemperature:      0.5,
			RewriteTemperature:       0.7,
			EvaluationTemperature:    0.3,
			SummarizationTemperature: 0.5,
		},
	}
}

func loadConfig() *Config {
	config := Default()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		yaml.Unmarshal(data, config)
	}

	// 环境变量优先级高于配置文件
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.APIURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL_NAME"); model != "" {
		config.LLM.Model = model
	}
	if searchKey := os.Getenv("SEARCH_API_KEY"); searchKey != "" {
		config.Search.APIKey = searchKey
	}
	if searchURL := os.Getenv("SEARCH_API_URL"); searchURL != "" {
		config.Search.APIURL = searchURL
	}

	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		config.Database.Type = dbType
	}
	if dbDSN := os.Getenv("DB_DSN"); dbDSN != "" {
		config.Database.DSN = dbDSN
	}

	return config
}

// Validate 校验启动必需项。凭据缺失属于致命的配置错误，应在进程启动时失败。
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return errors.New("llm api key is required (set OPENAI_API_KEY or llm.api_key)")
	}
	if c.LLM.APIURL == "" {
		return errors.New("llm api url is required")
	}
	return nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
