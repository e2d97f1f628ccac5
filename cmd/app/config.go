package main

import (
	"fmt"
	"strings"

	"superwinnings_backend/internal/repository"
	"superwinnings_backend/internal/service"
	"superwinnings_backend/pkg/auth"
	"superwinnings_backend/pkg/momo"
	"superwinnings_backend/pkg/sms"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database repository.Config `yaml:"database"`
	Server   ServerConfig      `yaml:"server"`

	JWT     auth.Config           `yaml:"jwt"`
	Momo    momo.Config           `yaml:"momo"`
	SMS     sms.Config            `yaml:"sms"`
	Payment service.PaymentConfig `yaml:"payment"`
	Rewards RewardsConfig         `yaml:"rewards"`

	OperatorKey string `yaml:"operatorKey"`
	LogLevel    string `yaml:"logLevel"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// RewardsConfig controls the nightly disbursement job. An empty schedule
// disables the in-process cron; the endpoint stays available either way.
type RewardsConfig struct {
	Schedule string `yaml:"schedule"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(configName)
	viper.AddConfigPath(configPath)
	viper.SetConfigType(configFormat)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
