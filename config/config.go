package config

import (
    "log"
    "os"

    "gopkg.in/yaml.v2"
)

type Config struct {
    Server struct {
        Port string `yaml:"port"`
    } `yaml:"server"`
    MySQL struct {
        DSN string `yaml:"dsn"`
    } `yaml:"mysql"`
    AI struct {
        VisionAPI     string  `yaml:"vision_api"`
        TextAPI       string  `yaml:"text_api"`
        ImageAPI      string  `yaml:"image_api"`
        APIKey        string  `yaml:"api_key"`
        PrimaryModel  string  `yaml:"primary_model"`
        FallbackModel string  `yaml:"fallback_model"`
        RequestCost   float64 `yaml:"request_cost"`
    } `yaml:"ai"`

    Redis struct {
        Addr     string `yaml:"addr"`
        Password string `yaml:"password"`
    } `yaml:"redis"`
    Pipeline struct {
        TickIntervalMs    int `yaml:"tick_interval_ms"`
        RecordTimeoutMin  int `yaml:"record_timeout_min"`
        MaxRetries        int `yaml:"max_retries"`
        WorkerConcurrency int `yaml:"worker_concurrency"`
    } `yaml:"pipeline"`
    MinIO struct {
        Endpoint  string `yaml:"endpoint"`
        AccessKey string `yaml:"access_key"`
        SecretKey string `yaml:"secret_key"`
        Bucket    string `yaml:"bucket"`
        UseSSL    bool   `yaml:"use_ssl"`
        Domain    string `yaml:"domain"`
    } `yaml:"minio"`
}

var AppConfig *Config

func InitConfig() {
    f, err := os.Open("config/config.yaml")
    if err != nil {
        log.Fatalf("配置文件读取失败: %v", err)
    }
    defer f.Close()
    decoder := yaml.NewDecoder(f)
    AppConfig = &Config{}
    if err := decoder.Decode(AppConfig); err != nil {
        log.Fatalf("配置文件解析失败: %v", err)
    }

    // 管线参数缺省值
    if AppConfig.Pipeline.TickIntervalMs <= 0 {
        AppConfig.Pipeline.TickIntervalMs = 5000
    }
    if AppConfig.Pipeline.RecordTimeoutMin <= 0 {
        AppConfig.Pipeline.RecordTimeoutMin = 10
    }
    if AppConfig.Pipeline.MaxRetries <= 0 {
        AppConfig.Pipeline.MaxRetries = 3
    }
    if AppConfig.Pipeline.WorkerConcurrency <= 0 {
        AppConfig.Pipeline.WorkerConcurrency = 5
    }
}
