package data

import (
	"os"
	"testing"

	"FuseGate/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
)

func TestNewRedisClient_MissingConfig(t *testing.T) {
	logger := log.NewStdLogger(os.Stdout)

	client, cleanup, err := NewRedisClient(nil, logger)
	assert.NoError(t, err)
	assert.Nil(t, client)
	cleanup()

	client, cleanup, err = NewRedisClient(&conf.Data{Redis: &conf.Data_Redis{}}, logger)
	assert.NoError(t, err)
	assert.Nil(t, client)
	cleanup()
}

func TestNewRedisClient_Connected(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	rdb.Close()

	logger := log.NewStdLogger(os.Stdout)
	client, cleanup, err := NewRedisClient(&conf.Data{
		Redis: &conf.Data_Redis{Addr: mr.Addr()},
	}, logger)
	assert.NoError(t, err)
	assert.NotNil(t, client)
	cleanup()
}

func TestNewRedisClient_UnreachableAddrDoesNotFail(t *testing.T) {
	logger := log.NewStdLogger(os.Stdout)

	// Startup must not depend on Redis being up; operations surface errors
	// until it recovers.
	client, cleanup, err := NewRedisClient(&conf.Data{
		Redis: &conf.Data_Redis{Addr: "127.0.0.1:1"},
	}, logger)
	assert.NoError(t, err)
	assert.NotNil(t, client)
	cleanup()
}
