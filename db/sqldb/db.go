package sqldb

import (
	"database/sql"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/nutriscan/nutriscan-be/config"
	"github.com/upper/db/v4"
	"github.com/upper/db/v4/adapter/mysql"
	"github.com/upper/db/v4/adapter/sqlite"
)

type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

type SQLDB struct {
	*UserDB
	*CredentialDB
	*PostDB
	*ProductDB
	*NotificationDB
	*DeviceDB
	sess    db.Session
	sqlDB   *sql.DB
	dialect Dialect
	dsn     string
}

func GetDatabase(cfg *config.DBConfig) (*SQLDB, error) {
	switch cfg.Driver {
	case config.DBDriverMySQL:
		return OpenMySQL(cfg)
	case config.DBDriverSQLite:
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
}

func OpenMySQL(cfg *config.DBConfig) (*SQLDB, error) {
	mysqlCfg := mysqldriver.NewConfig()
	mysqlCfg.User = cfg.User
	mysqlCfg.Passwd = cfg.Pass
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = cfg.Host
	mysqlCfg.DBName = cfg.Name
	mysqlCfg.ParseTime = true
	mysqlCfg.Loc = time.UTC
	// migrations are multi statement files
	mysqlCfg.MultiStatements = true
	// RowsAffected counts matched rows so updates that change nothing still find their target
	mysqlCfg.ClientFoundRows = true
	if cfg.TLS {
		mysqlCfg.TLSConfig = "true"
	}
	dsn := mysqlCfg.FormatDSN()

	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxConns)
	sqlDB.SetMaxOpenConns(cfg.MaxConns)
	sqlDB.SetConnMaxIdleTime(0)

	sess, err := mysql.New(sqlDB)
	if err != nil {
		return nil, err
	}
	return newSQLDB(sess, sqlDB, DialectMySQL, dsn), nil
}

func OpenSQLite(path string) (*SQLDB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite serializes writers; one connection keeps transactions from tripping over SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)

	sess, err := sqlite.New(sqlDB)
	if err != nil {
		return nil, err
	}
	return newSQLDB(sess, sqlDB, DialectSQLite, dsn), nil
}

func newSQLDB(sess db.Session, sqlDB *sql.DB, dialect Dialect, dsn string) *SQLDB {
	quietQueries.Do(func() {
		db.LC().SetLevel(queryLevel)
	})
	return &SQLDB{
		UserDB:         getUserDB(sess),
		CredentialDB:   getCredentialDB(sess),
		PostDB:         getPostDB(sess),
		ProductDB:      getProductDB(sess),
		NotificationDB: getNotificationDB(sess),
		DeviceDB:       getDeviceDB(sess),
		sess:           sess,
		sqlDB:          sqlDB,
		dialect:        dialect,
		dsn:            dsn,
	}
}

func (sdb *SQLDB) GetSQLDB() *sql.DB {
	return sdb.sqlDB
}

func (sdb *SQLDB) Dialect() Dialect {
	return sdb.dialect
}

func (sdb *SQLDB) Close() error {
	return sdb.sess.Close()
}

// now is the timestamp written to every row, truncated to what DATETIME(6) keeps.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
