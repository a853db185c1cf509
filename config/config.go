package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress    string   `mapstructure:"http_address"`
	RPCAddress     string   `mapstructure:"rpc_address"`
	GRPCAddress    string   `mapstructure:"grpc_address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	SendQueueSize  int      `mapstructure:"send_queue_size"`
	// Heartbeat is the websocket ping interval. Zero disables pings.
	Heartbeat time.Duration `mapstructure:"heartbeat"`
}

// GameConfig holds the fixed game content and the policy switches of the room.
type GameConfig struct {
	AdminPassword           string            `mapstructure:"admin_password"`
	EnergyCeiling           int               `mapstructure:"energy_ceiling"`
	Doors                   []string          `mapstructure:"doors"`
	Characters              map[string]string `mapstructure:"characters"`
	GuardOnlyDoors          bool              `mapstructure:"guard_only_doors"`
	ResetOnStart            bool              `mapstructure:"reset_on_start"`
	RequireActiveForActions bool              `mapstructure:"require_active_for_actions"`
	EnergyDrainInterval     time.Duration     `mapstructure:"energy_drain_interval"`
	EnergyDrainBase         int               `mapstructure:"energy_drain_base"`
	EnergyDrainPerDoor      int               `mapstructure:"energy_drain_per_closed_door"`
}

type AuthConfig struct {
	Secret             string        `mapstructure:"secret"`
	TokenTTL           time.Duration `mapstructure:"token_ttl"`
	RequireStatusToken bool          `mapstructure:"require_status_token"`
}

type DatabaseConfig struct {
	// Driver is one of gorm, postgres, sqlite or none.
	Driver      string         `mapstructure:"driver"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
	SQLitePath  string         `mapstructure:"sqlite_path"`
	AuditBuffer int            `mapstructure:"audit_buffer"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":10000")
	v.SetDefault("server.rpc_address", ":10001")
	v.SetDefault("server.grpc_address", "")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5500"})
	v.SetDefault("server.send_queue_size", 64)
	v.SetDefault("server.heartbeat", 30*time.Second)

	v.SetDefault("game.energy_ceiling", 240)
	v.SetDefault("game.doors", []string{"left", "right"})
	v.SetDefault("game.characters", map[string]string{
		"freddy": "stage",
		"bonnie": "stage",
		"chica":  "stage",
		"foxy":   "cove",
	})
	v.SetDefault("game.guard_only_doors", true)
	v.SetDefault("game.reset_on_start", true)
	v.SetDefault("game.require_active_for_actions", false)
	v.SetDefault("game.energy_drain_interval", time.Duration(0))
	v.SetDefault("game.energy_drain_base", 1)
	v.SetDefault("game.energy_drain_per_closed_door", 1)

	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("auth.require_status_token", false)

	v.SetDefault("database.driver", "none")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "fnar_user")
	v.SetDefault("database.postgres.dbname", "fnar_game")
	v.SetDefault("database.sqlite_path", "nightwatch.db")
	v.SetDefault("database.audit_buffer", 256)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
}

// LoadConfig reads config.yaml from path, falling back to defaults and
// environment variables when the file is absent.
func LoadConfig(path string) (config *Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("FNAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 兼容旧部署的环境变量名
	_ = v.BindEnv("game.admin_password", "FNAR_GAME_ADMIN_PASSWORD", "ADMIN_PASSWORD")
	_ = v.BindEnv("auth.secret", "FNAR_AUTH_SECRET", "SECRET_KEY")
	_ = v.BindEnv("database.postgres.password", "FNAR_DATABASE_POSTGRES_PASSWORD", "MYSQL_PASSWORD")
	_ = v.BindEnv("port", "FNAR_PORT", "PORT")

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	config = &Config{}
	if err = v.Unmarshal(config); err != nil {
		return nil, err
	}
	if port := strings.TrimSpace(v.GetString("port")); port != "" && !v.InConfig("server.http_address") && os.Getenv("FNAR_SERVER_HTTP_ADDRESS") == "" {
		config.Server.HTTPAddress = ":" + port
	}
	return config, config.Validate()
}

// Validate rejects configurations the room cannot run with.
func (c *Config) Validate() error {
	if c.Game.EnergyCeiling < 0 {
		return errors.New("game.energy_ceiling must not be negative")
	}
	if len(c.Game.Doors) == 0 {
		return errors.New("game.doors must list at least one side")
	}
	seen := make(map[string]bool, len(c.Game.Doors))
	for _, d := range c.Game.Doors {
		if d == "" || seen[d] {
			return errors.New("game.doors must be unique and non-empty")
		}
		seen[d] = true
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	switch c.Database.Driver {
	case "none", "gorm", "postgres", "sqlite":
	default:
		return errors.New("database.driver must be one of none, gorm, postgres, sqlite")
	}
	return nil
}
