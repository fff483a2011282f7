package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       Server      `mapstructure:"server"`
	Postgres     Postgres    `mapstructure:"postgres"`
	Broker       Broker      `mapstructure:"broker"`
	Outbox       Outbox      `mapstructure:"outbox"`
	Relay        RelayConfig `mapstructure:"relay"`
	CDC          CDC         `mapstructure:"cdc"`
	Cron         Cron        `mapstructure:"cron"`
	LoggingLevel string      `mapstructure:"logging-level"`
}

type Server struct {
	Port      string `mapstructure:"port"`
	BodyLimit int    `mapstructure:"body_limit"`
}

type Postgres struct {
	ConnString     string `mapstructure:"conn_string"`
	MaxConnections int32  `mapstructure:"max_connections"`
}

type Broker struct {
	Kafka Kafka `mapstructure:"kafka"`
}

type Kafka struct {
	Brokers       string `mapstructure:"brokers"`
	ConsumerTopic string `mapstructure:"consumerTopic"`
	ConsumerGroup string `mapstructure:"consumerGroup"`
	ReaderUsr     string `mapstructure:"readerUsr"`
	ReaderUsrPwd  string `mapstructure:"readerUsrPwd"`
	WriterUsr     string `mapstructure:"writerUsr"`
	WriterUsrPwd  string `mapstructure:"writerUsrPwd"`
	MaxAttempts   int    `mapstructure:"maxAttempts"`
}

// Outbox selects the staging store. "memory" is the single-process baseline,
// "postgres" is the durable deployment.
type Outbox struct {
	Storage string `mapstructure:"storage"`
}

type RelayConfig struct {
	Workers     int           `mapstructure:"workers"`
	BatchSize   int           `mapstructure:"batchSize"`
	Lease       time.Duration `mapstructure:"lease"`
	PollPeriod  time.Duration `mapstructure:"pollPeriod"`
	MaxAttempts int           `mapstructure:"maxAttempts"`
}

type CDC struct {
	// Source is stamped into every envelope this process emits.
	Source string `mapstructure:"source"`
}

type Cron struct {
	// Schedule takes priority over Interval when both are set.
	Schedule  string        `mapstructure:"schedule"`
	Interval  string        `mapstructure:"interval"`
	Retention time.Duration `mapstructure:"retention"`
}

func NewConfig() (Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	var conf Config
	err := viper.ReadInConfig()
	// a missing config file is fine, env vars alone are enough
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return conf, err
		}
	}

	err = viper.Unmarshal(&conf)

	return conf, err
}
