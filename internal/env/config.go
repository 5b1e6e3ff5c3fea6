package env

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	TrackerHost string `env:"IRIS_TRACKER_HOST,default=127.0.0.1"`
	TrackerPort int    `env:"IRIS_TRACKER_PORT,default=6555"`
	DebugHTTP   bool   `env:"IRIS_DEBUG_HTTP"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			panic(err)
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
