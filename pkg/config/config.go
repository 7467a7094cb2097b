package config

// Realtime definition realtime_service YAML structure
type Realtime struct {
	Port string

	MongoSQL DatabaseConfig `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Rabbit   RabbitConfig   `mapstructure:"rabbit"`

	WS       WSConfig       `mapstructure:"ws"`
	Presence PresenceConfig `mapstructure:"presence"`
	Typing   TypingConfig   `mapstructure:"typing"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// KafkaConfig definition kafka setting for push-class notification requests
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	PushTopic     string   `mapstructure:"push_topic"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// RabbitConfig definition rabbitmq setting for email-class notification requests
type RabbitConfig struct {
	URL           string `mapstructure:"url"`
	EmailQueue    string `mapstructure:"email_queue"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// WSConfig definition websocket tuning
type WSConfig struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	MaxMessageSizeBytes  int64 `mapstructure:"max_message_size_bytes"`
	SendBufferSize       int   `mapstructure:"send_buffer_size"`
}

// PresenceConfig definition presence registry sweep thresholds
type PresenceConfig struct {
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
	StaleAfterSeconds    int `mapstructure:"stale_after_seconds"`
	AbsentAfterMinutes   int `mapstructure:"absent_after_minutes"`
}

// TypingConfig definition typing indicator TTL and sweep
type TypingConfig struct {
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
	TTLSeconds           int `mapstructure:"ttl_seconds"`
}
