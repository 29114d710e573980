package redis_client

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/latemate/latemate/pkg/util"
)

var Client *redis.Client

const defaultConnectionAddress = "localhost:6379"
const defaultConnectionPassword = ""
const defaultDatabase = 0

// Connect opens the shared redis client from LATEMATE_REDIS_* environment
// variables. Redis only backs the HSP response cache, so callers treat a
// missing address as "cache disabled" rather than an error.
func Connect() error {
	address := defaultConnectionAddress
	password := defaultConnectionPassword
	database := defaultDatabase

	env := util.GetEnvironmentVariables()

	if env["LATEMATE_REDIS_ADDRESS"] != "" {
		address = env["LATEMATE_REDIS_ADDRESS"]
	}

	if env["LATEMATE_REDIS_PASSWORD"] != "" {
		password = env["LATEMATE_REDIS_PASSWORD"]
	}

	if env["LATEMATE_REDIS_DATABASE"] != "" {
		if n, err := strconv.Atoi(env["LATEMATE_REDIS_DATABASE"]); err == nil {
			database = n
		} else {
			return err
		}
	}

	Client = redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})

	return Client.Ping(context.Background()).Err()
}
