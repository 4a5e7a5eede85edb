package reminder_config

import (
	"time"

	"github.com/taskhive/taskhive/internal/obs"
	pg "github.com/taskhive/taskhive/internal/repository/postgres"
)

type KafkaOut struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type SchedCfg struct {
	Tick        time.Duration `mapstructure:"tick"`
	Backstop    time.Duration `mapstructure:"backstop"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Config struct {
	DB       pg.Config `mapstructure:"db"`
	Kafka    KafkaOut  `mapstructure:"kafka"`
	Sched    SchedCfg  `mapstructure:"sched"`
	OTEL     OTEL      `mapstructure:"otel"`
	LogLevel string    `mapstructure:"log_level"`
}
