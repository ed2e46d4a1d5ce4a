package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ServerConfig 定义了 HTTP 服务的监听配置。
type ServerConfig struct {
	Address string `yaml:"address"` // 监听地址 (例如: ":8080")
}

// GeminiConfig 包含了 Gemini 模型的配置。
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"` // Gemini API 密钥
	Model  string `yaml:"model"`  // Gemini 模型名称
}

// OllamaConfig 包含了本地 Ollama 服务的配置。
type OllamaConfig struct {
	Host  string `yaml:"host"`  // Ollama 服务地址 (为空时使用 OLLAMA_HOST 环境变量)
	Model string `yaml:"model"` // 模型名称
}

// GeneratorConfig 包含了答案生成模型的配置。
type GeneratorConfig struct {
	Provider       string       `yaml:"provider"`       // 生成模型提供商 ("gemini" 或 "ollama")
	Enabled        bool         `yaml:"enabled"`        // 是否启用生成能力
	TimeoutSeconds int          `yaml:"timeoutSeconds"` // 单次生成调用的超时时间 (秒)
	Gemini         GeminiConfig `yaml:"gemini"`         // Gemini 模型配置
	Ollama         OllamaConfig `yaml:"ollama"`         // Ollama 模型配置
}

// EmbeddingConfig 包含了词向量提供商的配置。
type EmbeddingConfig struct {
	Provider string       `yaml:"provider"` // 词向量提供商 ("gemini", "ollama" 或 "none")
	Gemini   GeminiConfig `yaml:"gemini"`   // Gemini 模型配置
	Ollama   OllamaConfig `yaml:"ollama"`   // Ollama 模型配置
	CacheTTL int          `yaml:"cacheTTL"` // Redis 词向量缓存的有效期 (秒，0 表示不过期)
}

// ChunkingConfig 定义了段落切分的尺寸参数 (以字符数为单位)。
type ChunkingConfig struct {
	Profile string `yaml:"profile"` // 切分档位 ("default" 或 "large")
}

// RetrievalConfig 定义了混合检索的权重与阈值。
type RetrievalConfig struct {
	TopK            int     `yaml:"topK"`            // 返回的候选段落数量
	KeywordWeight   float64 `yaml:"keywordWeight"`   // 关键词得分权重
	SemanticWeight  float64 `yaml:"semanticWeight"`  // 语义得分权重
	HybridThreshold float64 `yaml:"hybridThreshold"` // 判定为 hybrid 匹配的分量阈值
}

// KeywordsConfig 定义了关键词提取的配置。
type KeywordsConfig struct {
	Deterministic bool `yaml:"deterministic"` // 为 true 时使用确定性分词器代替词性标注
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`  // 是否启用 Redis 词向量缓存
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Enabled   bool   `yaml:"enabled"`   // 是否将原始 PDF 归档到对象存储
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 默认存储桶名称
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// StorageConfig 选择持久化后端。
type StorageConfig struct {
	Backend string `yaml:"backend"` // "mysql" 或 "memory" (开发/测试用)
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	MySQL MySQLConfig `yaml:"mysql"` // MySQL 数据库配置
	Redis RedisConfig `yaml:"redis"` // Redis 数据库配置
	MinIO MinIOConfig `yaml:"minio"` // MinIO 对象存储配置
}

// RateLimiterConfig 定义了查询端点限流器的配置。
type RateLimiterConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Rate     float64 `yaml:"rate"`     // 每秒生成的令牌数
	Capacity int     `yaml:"capacity"` // 令牌桶容量 (突发量)
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter RateLimiterConfig `yaml:"rateLimiter"`
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`        // 应用程序信息
	Logger     LoggerConfig     `yaml:"logger"`     // 日志记录器配置
	Server     ServerConfig     `yaml:"server"`     // HTTP 服务配置
	Generator  GeneratorConfig  `yaml:"generator"`  // 答案生成模型配置
	Embedding  EmbeddingConfig  `yaml:"embedding"`  // 词向量提供商配置
	Chunking   ChunkingConfig   `yaml:"chunking"`   // 段落切分配置
	Retrieval  RetrievalConfig  `yaml:"retrieval"`  // 混合检索配置
	Keywords   KeywordsConfig   `yaml:"keywords"`   // 关键词提取配置
	Storage    StorageConfig    `yaml:"storage"`    // 持久化后端选择
	Databases  DatabaseConfigs  `yaml:"databases"`  // 数据库配置
	Middleware MiddlewareConfig `yaml:"middleware"` // 中间件配置
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取或解析失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	// 读取 YAML 文件内容。
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig
	// 将 YAML 内容解析到 cfg 结构体中。
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	return &cfg, nil
}
