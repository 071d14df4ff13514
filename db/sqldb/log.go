package sqldb

import (
	"sync"

	"github.com/upper/db/v4"
	"go.uber.org/zap"
)

// queryLevel drops upper/db's per statement warnings. Failed statements are
// returned to the caller, which decides whether they are worth logging.
const queryLevel = db.LogLevelError

var quietQueries sync.Once

// queryLogger sends what upper/db still logs to zap instead of the std logger.
type queryLogger struct {
	log *zap.SugaredLogger
}

func (ql queryLogger) Print(v ...interface{}) {
	ql.log.Error(v...)
}

func (ql queryLogger) Printf(format string, v ...interface{}) {
	ql.log.Errorf(format, v...)
}

func (ql queryLogger) Fatal(v ...interface{}) {
	ql.log.Fatal(v...)
}

func (ql queryLogger) Fatalf(format string, v ...interface{}) {
	ql.log.Fatalf(format, v...)
}

func (ql queryLogger) Panic(v ...interface{}) {
	ql.log.Panic(v...)
}

func (ql queryLogger) Panicf(format string, v ...interface{}) {
	ql.log.Panicf(format, v...)
}

// SetQueryLog routes upper/db's logging through log. It changes process wide
// state, so call it once before opening a database.
func SetQueryLog(log *zap.Logger) {
	db.LC().SetLogger(queryLogger{log.Named("sql").Sugar()})
	db.LC().SetLevel(queryLevel)
}
