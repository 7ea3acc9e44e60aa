package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Gemini struct {
		Model       string  `mapstructure:"model"`
		Temperature float32 `mapstructure:"temperature"`
		MaxTokens   int32   `mapstructure:"maxTokens"`
	} `mapstructure:"gemini"`
	TourAPI struct {
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"tourApi"`
	Naver struct {
		Timeout time.Duration `mapstructure:"timeout"`
		Display int           `mapstructure:"display"`
	} `mapstructure:"naver"`
	Retrieval struct {
		CallTimeout time.Duration `mapstructure:"callTimeout"`
		CacheTTL    time.Duration `mapstructure:"cacheTTL"`
		PageSize    int           `mapstructure:"pageSize"`
	} `mapstructure:"retrieval"`
	Pipeline struct {
		StageTimeout time.Duration `mapstructure:"stageTimeout"`
	} `mapstructure:"pipeline"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
