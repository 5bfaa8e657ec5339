package secretstore

import (
	"sync"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload" // Load .env file automatically
)

var (
	cfg  Config
	once sync.Once
)

type Config struct {
	// Path locates the encrypted container file on the device.
	Path string `env:"TIQR_SECRETS_PATH" envDefault:"tiqr-secrets.json"`
}

// LoadConfig loads the container configuration from the environment once
// per process.
func LoadConfig() (Config, error) {
	var err error
	once.Do(func() {
		err = env.Parse(&cfg)
	})
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Open creates a Store over the file container named by the environment.
func Open(opts ...Option) (*Store, error) {
	c, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(NewFileContainer(c.Path), opts...), nil
}
