package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DatabaseURL  string `envconfig:"DATABASE_URL" default:"root:fantasy@tcp(localhost:3306)/ultimate_fantasy?charset=utf8mb4&parseTime=True&loc=Local"`
	RedisAddr    string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Port         string `envconfig:"PORT" default:"8080"`
	Environment  string `envconfig:"ENVIRONMENT" default:"development"`
	StatsFeedURL string `envconfig:"STATS_FEED_URL" default:""`
}

func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}
