package sqldb

import (
	"context"
	"testing"

	db2 "github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upper/db/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestQueryLogGoesToZap(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetQueryLog(zap.New(core))
	t.Cleanup(func() { db.LC().SetLogger(nil) })

	sdb := newTestDB(t)
	createUser(t, sdb, "u1")
	err := sdb.CreateUser(context.Background(), &model.User{Id: "u1", Username: "again"})
	assert.True(t, db2.IsDupKeyErr(err))
	assert.Zero(t, logs.Len())
	assert.Equal(t, db.LogLevelError, db.LC().Level())

	db.LC().Error("connection lost")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "sql", logs.All()[0].LoggerName)
	assert.Equal(t, "connection lost", logs.All()[0].Message)
}
