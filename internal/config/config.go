// Package config 加载服务配置：默认值 -> YAML文件 -> .env -> 环境变量 -> 校验
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 服务总配置
type Config struct {
	App        AppConfig        `yaml:"app"`
	APIServer  APIServerConfig  `yaml:"api_server"`
	Source     SourceConfig     `yaml:"source"`
	Renderer   RendererConfig   `yaml:"renderer"`
	OCR        OCRConfig        `yaml:"ocr"`
	Compliance ComplianceConfig `yaml:"compliance"`
	Report     ReportConfig     `yaml:"report"`
	Email      EmailConfig      `yaml:"email"`
	Delivery   DeliveryConfig   `yaml:"delivery"`
	Storage    StorageConfig    `yaml:"storage"`
	GCS        GCSConfig        `yaml:"gcs"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `yaml:"name" env:"APP_NAME" default:"paycheck"`
	Debug    bool   `yaml:"debug" env:"APP_DEBUG" default:"false"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
}

// APIServerConfig HTTP服务配置
type APIServerConfig struct {
	Host    string        `yaml:"host" env:"HOST" default:"0.0.0.0"`
	Port    int           `yaml:"port" env:"PORT" default:"5000" validate:"min=1,max=65535"`
	Mode    string        `yaml:"mode" env:"GIN_MODE" default:"release" validate:"oneof=debug release test"`
	Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT" default:"5m" validate:"gt=0"`
}

// SourceConfig 工资单来源配置
type SourceConfig struct {
	AllowLocal  bool          `yaml:"allow_local" env:"SOURCE_ALLOW_LOCAL" default:"false"`
	LocalRoot   string        `yaml:"local_root" env:"SOURCE_LOCAL_ROOT"`
	HTTPTimeout time.Duration `yaml:"http_timeout" env:"SOURCE_HTTP_TIMEOUT" default:"30s" validate:"gt=0"`
	MaxBytes    int64         `yaml:"max_bytes" env:"SOURCE_MAX_BYTES" default:"26214400" validate:"gt=0"`
}

// RendererConfig PDF栅格化配置
type RendererConfig struct {
	Command      string        `yaml:"command" env:"RENDERER_COMMAND" default:"pdftoppm"`
	DPI          int           `yaml:"dpi" env:"RENDERER_DPI" default:"300" validate:"min=72,max=1200"`
	MaxDimension int           `yaml:"max_dimension" env:"RENDERER_MAX_DIMENSION" default:"5000" validate:"min=0"`
	Timeout      time.Duration `yaml:"timeout" env:"RENDERER_TIMEOUT" default:"2m" validate:"gt=0"`
	TempDir      string        `yaml:"temp_dir" env:"RENDERER_TEMP_DIR"`
}

// OCRConfig 文字识别配置
type OCRConfig struct {
	Languages      []string      `yaml:"languages" env:"OCR_LANGUAGES" envSeparator:"," default:"[\"eng\"]" validate:"min=1"`
	TessdataPrefix string        `yaml:"tessdata_prefix" env:"TESSDATA_PREFIX"`
	Concurrency    int           `yaml:"concurrency" env:"OCR_CONCURRENCY" default:"1" validate:"min=1,max=32"`
	PageTimeout    time.Duration `yaml:"page_timeout" env:"OCR_PAGE_TIMEOUT" default:"60s" validate:"gt=0"`
	Timeout        time.Duration `yaml:"timeout" env:"OCR_TIMEOUT" default:"3m" validate:"gt=0"`
}

// ComplianceConfig 合规规则配置，金额以字符串表示避免浮点误差
type ComplianceConfig struct {
	WageRule           string `yaml:"wage_rule" env:"COMPLIANCE_WAGE_RULE" default:"multiplier" validate:"oneof=multiplier hourly"`
	WageMultiplier     string `yaml:"wage_multiplier" env:"COMPLIANCE_WAGE_MULTIPLIER" default:"1.00" validate:"numeric"`
	HourlyRate         string `yaml:"hourly_rate" env:"COMPLIANCE_HOURLY_RATE" default:"7.25" validate:"numeric"`
	OvertimeMultiplier string `yaml:"overtime_multiplier" env:"COMPLIANCE_OVERTIME_MULTIPLIER" default:"1.5" validate:"numeric"`
	TipCreditMinimum   string `yaml:"tip_credit_minimum" env:"COMPLIANCE_TIP_CREDIT_MINIMUM" default:"100.00" validate:"numeric"`
	OvertimeMaxHours   string `yaml:"overtime_max_hours" env:"COMPLIANCE_OVERTIME_MAX_HOURS" default:"40" validate:"numeric"`
	MatchTolerance     string `yaml:"match_tolerance" env:"COMPLIANCE_MATCH_TOLERANCE" default:"0.005" validate:"numeric"`
}

// ReportConfig 报告配置
type ReportConfig struct {
	LogoPath  string `yaml:"logo_path" env:"REPORT_LOGO_PATH" default:"static/logo.png"`
	OutputDir string `yaml:"output_dir" env:"REPORT_OUTPUT_DIR"`
	MinBytes  int64  `yaml:"min_bytes" env:"REPORT_MIN_BYTES" default:"500" validate:"min=500"`
	FileName  string `yaml:"file_name" env:"REPORT_FILE_NAME" default:"paystub_report.pdf" validate:"required"`
	Compress  bool   `yaml:"compress" env:"REPORT_COMPRESS" default:"true"`
}

// EmailConfig SMTP配置，环境变量名沿用原有部署
type EmailConfig struct {
	Sender   string        `yaml:"sender" env:"EMAIL_SENDER" default:"info@mytips.pro" validate:"required,email"`
	AuthUser string        `yaml:"auth_user" env:"EMAIL_AUTH_USER" default:"leif@mytips.pro" validate:"required"`
	Password string        `yaml:"password" env:"EMAIL_PASSWORD"`
	Host     string        `yaml:"host" env:"EMAIL_SMTP_SERVER" default:"smtp.gmail.com" validate:"required,hostname"`
	Port     int           `yaml:"port" env:"EMAIL_SMTP_PORT" default:"465" validate:"min=1,max=65535"`
	Timeout  time.Duration `yaml:"timeout" env:"EMAIL_TIMEOUT" default:"30s" validate:"gt=0"`
}

// DeliveryConfig 投递失败策略
type DeliveryConfig struct {
	// ReturnReportOnFailure 为true时邮件失败仍返回报告
	ReturnReportOnFailure bool `yaml:"return_report_on_failure" env:"DELIVERY_RETURN_REPORT_ON_FAILURE" default:"false"`
}

// StorageConfig MinIO配置
type StorageConfig struct {
	Enabled         bool   `yaml:"enabled" env:"MINIO_ENABLED" default:"false"`
	Endpoint        string `yaml:"endpoint" env:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"MINIO_ACCESS_KEY_ID" default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"MINIO_SECRET_ACCESS_KEY" default:"minioadmin"`
	UseSSL          bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" default:"false"`
	BucketName      string `yaml:"bucket_name" env:"MINIO_BUCKET_NAME" default:"paystubs"`
	Region          string `yaml:"region" env:"MINIO_REGION" default:"us-east-1"`
	ArchiveReports  bool   `yaml:"archive_reports" env:"MINIO_ARCHIVE_REPORTS" default:"false"`
	ReportPrefix    string `yaml:"report_prefix" env:"MINIO_REPORT_PREFIX" default:"reports/"`
}

// GCSConfig Google Cloud Storage配置
type GCSConfig struct {
	Enabled         bool   `yaml:"enabled" env:"GCS_ENABLED" default:"false"`
	CredentialsFile string `yaml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
}

var validate = validator.New()

// Default 返回仅包含默认值的配置
func Default() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("设置默认配置失败: %w", err)
	}
	return cfg, nil
}

// Load 按顺序加载配置，path为空或文件不存在时跳过YAML
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("解析配置文件失败 %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("读取配置文件失败 %s: %w", path, err)
		}
	}

	// .env 不存在是正常情况
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	if c.Source.LocalRoot != "" && !c.Source.AllowLocal {
		return fmt.Errorf("配置校验失败: source.local_root 需要 source.allow_local=true")
	}
	return nil
}

// Addr HTTP监听地址
func (c *APIServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
