// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// 占位密钥，视为未配置
var placeholderKeys = map[string]bool{
	"your-openai-api-key-here":     true,
	"your-openrouter-api-key-here": true,
}

// AppConfig 包含应用程序的所有配置
type AppConfig struct {
	// 基础配置
	Host       string `json:"host"`
	Port       string `json:"port"`
	DataDir    string `json:"data_dir"`
	PromptsDir string `json:"prompts_dir"`
	LogDir     string `json:"log_dir"`
	DebugMode  bool   `json:"debug_mode"`

	// LLM相关配置
	LLMProvider string            `json:"llm_provider"`
	LLMConfig   map[string]string `json:"llm_config"`

	// 生成默认参数
	DefaultModel       string  `json:"default_model"`
	DefaultTemperature float64 `json:"default_temperature"`
}

// Config 存储从环境变量加载的基础配置
type Config struct {
	Host               string
	Port               string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	DefaultModel       string
	DefaultTemperature float64
	DataDir            string
	PromptsDir         string
	LogDir             string
	DebugMode          bool
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	config := &Config{
		Host:               getEnv("HOST", "0.0.0.0"),
		Port:               getEnv("PORT", "8000"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://openrouter.ai/api/v1"),
		DefaultModel:       getEnv("DEFAULT_MODEL", "google/gemma-2-9b-it:free"),
		DefaultTemperature: getEnvFloat("DEFAULT_TEMPERATURE", 0.7),
		DataDir:            getEnvPath("DATA_DIR", "data"),
		PromptsDir:         getEnvPath("PROMPTS_DIR", "prompts"),
		LogDir:             getEnvPath("LOG_DIR", "logs"),
		DebugMode:          getEnvBool("DEBUG_MODE", false),
	}

	if !config.Validate() {
		// 只记录警告，不返回错误：密钥也可以稍后通过设置接口配置
		log.Println("警告: 未设置有效的OPENAI_API_KEY，需要配置后才能使用生成功能")
	}

	return config, nil
}

// Validate 检查API密钥是否有效
func (c *Config) Validate() bool {
	if c.OpenAIAPIKey == "" {
		return false
	}
	return !placeholderKeys[c.OpenAIAPIKey]
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，如果不存在则返回默认值
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	// 确保目录存在
	if _, err := os.Stat(path); os.IsNotExist(err) {
		err = os.MkdirAll(path, 0755)
		if err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

// getEnvFloat 获取浮点类型环境变量
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// InitConfig 初始化配置管理器
func InitConfig(dataDir string) error {
	configFile = filepath.Join(dataDir, "config.json")

	// 加载基础配置
	baseConfig, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = &AppConfig{
		Host:               baseConfig.Host,
		Port:               baseConfig.Port,
		DataDir:            baseConfig.DataDir,
		PromptsDir:         baseConfig.PromptsDir,
		LogDir:             baseConfig.LogDir,
		DebugMode:          baseConfig.DebugMode,
		DefaultModel:       baseConfig.DefaultModel,
		DefaultTemperature: baseConfig.DefaultTemperature,
		LLMProvider:        "openai",
		LLMConfig: map[string]string{
			"api_key":       baseConfig.OpenAIAPIKey,
			"base_url":      baseConfig.OpenAIBaseURL,
			"default_model": baseConfig.DefaultModel,
		},
	}

	// 尝试从文件加载已保存的配置
	if _, err := os.Stat(configFile); !os.IsNotExist(err) {
		data, err := os.ReadFile(configFile)
		if err == nil {
			var savedConfig AppConfig
			if json.Unmarshal(data, &savedConfig) == nil {
				// 合并配置，保留文件中的LLM设置，但使用最新的基础配置
				savedConfig.Host = baseConfig.Host
				savedConfig.Port = baseConfig.Port
				savedConfig.DataDir = baseConfig.DataDir
				savedConfig.PromptsDir = baseConfig.PromptsDir
				savedConfig.LogDir = baseConfig.LogDir
				savedConfig.DebugMode = baseConfig.DebugMode

				// 如果文件中没有API密钥，使用环境变量的密钥
				if savedConfig.LLMConfig != nil && savedConfig.LLMConfig["api_key"] == "" {
					savedConfig.LLMConfig["api_key"] = baseConfig.OpenAIAPIKey
				}
				if savedConfig.DefaultModel == "" {
					savedConfig.DefaultModel = baseConfig.DefaultModel
				}
				if savedConfig.DefaultTemperature == 0 {
					savedConfig.DefaultTemperature = baseConfig.DefaultTemperature
				}

				currentConfig = &savedConfig
			}
		}
	}

	// 保存初始配置到文件
	return SaveConfig()
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		// 紧急情况，返回一个基本配置
		baseConfig, _ := Load()
		return &AppConfig{
			Host:               baseConfig.Host,
			Port:               baseConfig.Port,
			DataDir:            baseConfig.DataDir,
			PromptsDir:         baseConfig.PromptsDir,
			LogDir:             baseConfig.LogDir,
			DebugMode:          baseConfig.DebugMode,
			DefaultModel:       baseConfig.DefaultModel,
			DefaultTemperature: baseConfig.DefaultTemperature,
			LLMProvider:        "openai",
			LLMConfig: map[string]string{
				"api_key":  baseConfig.OpenAIAPIKey,
				"base_url": baseConfig.OpenAIBaseURL,
			},
		}
	}

	// 返回配置的副本
	configCopy := *currentConfig
	return &configCopy
}

// UpdateLLMConfig 更新LLM配置
func UpdateLLMConfig(provider string, config map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}

	currentConfig.LLMProvider = provider
	currentConfig.LLMConfig = config

	return saveConfigLocked()
}

// SaveConfig 保存当前配置到文件
func SaveConfig() error {
	return saveConfigLocked()
}

func saveConfigLocked() error {
	if currentConfig == nil {
		return fmt.Errorf("没有配置可保存")
	}

	// 确保目录存在
	dir := filepath.Dir(configFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建配置目录失败: %w", err)
		}
	}

	// 序列化并保存
	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	return os.WriteFile(configFile, data, 0644)
}
