package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Trading TradingConfig `yaml:"trading"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// TradingConfig controla el comportamiento del ladder.
type TradingConfig struct {
	IntervalSeconds   int            `yaml:"interval_seconds"`
	OrderSizeUSD      float64        `yaml:"order_size_usd"`
	DepthThresholdUSD float64        `yaml:"depth_threshold_usd"` // profundidad mínima para inicializar el ladder
	ShiftLiquidityUSD float64        `yaml:"shift_liquidity_usd"` // piso de liquidez sobre el ladder antes de subirlo
	Markets           []MarketConfig `yaml:"markets"`
}

// MarketConfig identifica un mercado a trackear (la selección de mercados
// es externa al bot).
type MarketConfig struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	CLOBBase string `yaml:"clob_base"`
	DataBase string `yaml:"data_base"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Credentials son las credenciales L2 del CLOB, solo desde el entorno.
type Credentials struct {
	APIKey     string
	Secret     string
	Passphrase string
	Address    string
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// TickInterval devuelve el intervalo del control loop como time.Duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Trading.IntervalSeconds) * time.Second
}

// LoadCredentials lee las credenciales del CLOB desde el entorno.
func LoadCredentials() Credentials {
	return Credentials{
		APIKey:     os.Getenv("POLY_API_KEY"),
		Secret:     os.Getenv("POLY_API_SECRET"),
		Passphrase: os.Getenv("POLY_API_PASSPHRASE"),
		Address:    os.Getenv("POLY_ADDRESS"),
	}
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Trading.IntervalSeconds <= 0 {
		cfg.Trading.IntervalSeconds = 30
	}
	if cfg.Trading.OrderSizeUSD <= 0 {
		cfg.Trading.OrderSizeUSD = 5
	}
	if cfg.Trading.DepthThresholdUSD <= 0 {
		cfg.Trading.DepthThresholdUSD = 100
	}
	if cfg.Trading.ShiftLiquidityUSD <= 0 {
		cfg.Trading.ShiftLiquidityUSD = 500
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "ladderbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
