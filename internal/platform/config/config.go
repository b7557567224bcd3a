// Package config 读取 configs/config.yaml，环境变量 (FINPLAN_*) 覆盖文件中的值
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug | release
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // postgres | sqlite
	DSN          string `mapstructure:"dsn"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	LogSQL       bool   `mapstructure:"log_sql"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

type TracingConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// LedgerConfig 自动交易使用的分类名
type LedgerConfig struct {
	OtherIncomeCategory         string `mapstructure:"other_income_category"`
	OtherExpenseCategory        string `mapstructure:"other_expense_category"`
	DepositInterestCategory     string `mapstructure:"deposit_interest_category"`
	SavingsInterestCategory     string `mapstructure:"savings_interest_category"`
	LoanInterestIncomeCategory  string `mapstructure:"loan_interest_income_category"`
	LoanInterestExpenseCategory string `mapstructure:"loan_interest_expense_category"`
	CommissionCategory          string `mapstructure:"commission_category"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
}

// Load 读取配置文件；path 为空时在 ./configs 与 . 下查找 config.yaml
// 同目录或工作目录下的 .env 会先被载入环境变量
func Load(path string) (*Config, error) {
	// .env 不存在不是错误
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	// 例如 FINPLAN_DATABASE_DSN 覆盖 database.dsn
	v.SetEnvPrefix("FINPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.log_sql", false)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.service_name", "finplan-backend")
	v.SetDefault("ledger.other_income_category", "")
	v.SetDefault("ledger.other_expense_category", "")
	v.SetDefault("ledger.deposit_interest_category", "")
	v.SetDefault("ledger.savings_interest_category", "")
	v.SetDefault("ledger.loan_interest_income_category", "")
	v.SetDefault("ledger.loan_interest_expense_category", "")
	v.SetDefault("ledger.commission_category", "")
}
