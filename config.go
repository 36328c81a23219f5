/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package analyticsdb

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/acronis/go-appkit/config"
)

const cfgDefaultKeyPrefix = "database"

const (
	cfgKeyDialect         = "dialect"
	cfgKeyTablePrefix     = "tablePrefix"
	cfgKeyMaxIdleConns    = "maxIdleConns"
	cfgKeyMaxOpenConns    = "maxOpenConns"
	cfgKeyConnMaxLifetime = "connMaxLifeTime"

	cfgKeyMySQLHost     = "mysql.host"
	cfgKeyMySQLPort     = "mysql.port"
	cfgKeyMySQLDatabase = "mysql.database"
	cfgKeyMySQLUser     = "mysql.user"
	cfgKeyMySQLPassword = "mysql.password" //nolint: gosec
	cfgKeyMySQLTxLevel  = "mysql.txLevel"
	cfgKeyMySQLCharset  = "mysql.charset"

	cfgKeySQLitePath = "sqlite3.path"
)

// Defaults of the analytics database config.
const (
	DefaultMaxOpenConns    = 10
	DefaultMaxIdleConns    = 2
	DefaultConnMaxLifetime = 10 * time.Minute
	DefaultMySQLCharset    = "utf8mb4"

	MySQLDefaultTxLevel = sql.LevelReadCommitted
)

// Config describes how to connect to the database of an analytics installation.
type Config struct {
	Dialect         Dialect             `mapstructure:"dialect" yaml:"dialect" json:"dialect"`
	TablePrefix     TablePrefix         `mapstructure:"tablePrefix" yaml:"tablePrefix" json:"tablePrefix"`
	MaxOpenConns    int                 `mapstructure:"maxOpenConns" yaml:"maxOpenConns" json:"maxOpenConns"`
	MaxIdleConns    int                 `mapstructure:"maxIdleConns" yaml:"maxIdleConns" json:"maxIdleConns"`
	ConnMaxLifetime config.TimeDuration `mapstructure:"connMaxLifeTime" yaml:"connMaxLifeTime" json:"connMaxLifeTime"`
	MySQL           MySQLConfig         `mapstructure:"mysql" yaml:"mysql" json:"mysql"`
	SQLite          SQLiteConfig        `mapstructure:"sqlite3" yaml:"sqlite3" json:"sqlite3"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// MySQLConfig holds the MySQL (or MariaDB) connection parameters.
type MySQLConfig struct {
	Host             string         `mapstructure:"host" yaml:"host" json:"host"`
	Port             int            `mapstructure:"port" yaml:"port" json:"port"`
	User             string         `mapstructure:"user" yaml:"user" json:"user"`
	Password         string         `mapstructure:"password" yaml:"password" json:"password"`
	Database         string         `mapstructure:"database" yaml:"database" json:"database"`
	Charset          string         `mapstructure:"charset" yaml:"charset" json:"charset"`
	TxIsolationLevel IsolationLevel `mapstructure:"txLevel" yaml:"txLevel" json:"txLevel"`
}

// SQLiteConfig holds the path of the SQLite database file.
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// ConfigOption customizes NewConfig.
type ConfigOption func(*Config)

// WithKeyPrefix sets the key under which config.Loader looks for the database parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(c *Config) {
		c.keyPrefix = keyPrefix
	}
}

// NewConfig creates an empty Config.
func NewConfig(options ...ConfigOption) *Config {
	cfg := &Config{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// NewDefaultConfig creates a Config filled with the defaults.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.MaxOpenConns = DefaultMaxOpenConns
	cfg.MaxIdleConns = DefaultMaxIdleConns
	cfg.ConnMaxLifetime = config.TimeDuration(DefaultConnMaxLifetime)
	cfg.MySQL.Charset = DefaultMySQLCharset
	cfg.MySQL.TxIsolationLevel = IsolationLevel(MySQLDefaultTxLevel)
	return cfg
}

// KeyPrefix implements config.KeyPrefixProvider.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults implements config.Config.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	for key, value := range map[string]interface{}{
		cfgKeyMaxOpenConns:    DefaultMaxOpenConns,
		cfgKeyMaxIdleConns:    DefaultMaxIdleConns,
		cfgKeyConnMaxLifetime: DefaultConnMaxLifetime,
		cfgKeyMySQLTxLevel:    MySQLDefaultTxLevel.String(),
		cfgKeyMySQLCharset:    DefaultMySQLCharset,
	} {
		dp.SetDefault(key, value)
	}
}

// Set implements config.Config. Only the section of the chosen dialect is read.
func (c *Config) Set(dp config.DataProvider) error {
	dialect, err := dp.GetStringFromSet(cfgKeyDialect, []string{string(DialectMySQL), string(DialectSQLite)}, false)
	if err != nil {
		return err
	}
	c.Dialect = Dialect(dialect)

	if c.Dialect == DialectMySQL {
		err = c.setMySQLConfig(dp)
	} else {
		err = c.setSQLiteConfig(dp)
	}
	if err != nil {
		return err
	}

	if err = c.setTablePrefix(dp); err != nil {
		return err
	}
	return c.setConnPoolConfig(dp)
}

func (c *Config) setTablePrefix(dp config.DataProvider) error {
	prefix, err := dp.GetString(cfgKeyTablePrefix)
	if err != nil {
		return err
	}
	if strings.ContainsAny(prefix, "`\"' ") {
		return dp.WrapKeyErr(cfgKeyTablePrefix, fmt.Errorf("must not contain quotes or spaces"))
	}
	c.TablePrefix = TablePrefix(prefix)
	return nil
}

func (c *Config) setConnPoolConfig(dp config.DataProvider) error {
	maxOpenConns, err := getNonNegativeInt(dp, cfgKeyMaxOpenConns)
	if err != nil {
		return err
	}
	maxIdleConns, err := getNonNegativeInt(dp, cfgKeyMaxIdleConns)
	if err != nil {
		return err
	}
	if maxOpenConns > 0 && maxIdleConns > maxOpenConns {
		return dp.WrapKeyErr(cfgKeyMaxIdleConns, fmt.Errorf("must be less than %s", cfgKeyMaxOpenConns))
	}
	connMaxLifetime, err := dp.GetDuration(cfgKeyConnMaxLifetime)
	if err != nil {
		return err
	}
	c.MaxOpenConns = maxOpenConns
	c.MaxIdleConns = maxIdleConns
	c.ConnMaxLifetime = config.TimeDuration(connMaxLifetime)
	return nil
}

func getNonNegativeInt(dp config.DataProvider, key string) (int, error) {
	v, err := dp.GetInt(key)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, dp.WrapKeyErr(key, fmt.Errorf("must be positive"))
	}
	return v, nil
}

func (c *Config) setMySQLConfig(dp config.DataProvider) error {
	var err error
	for key, dst := range map[string]*string{
		cfgKeyMySQLHost:     &c.MySQL.Host,
		cfgKeyMySQLUser:     &c.MySQL.User,
		cfgKeyMySQLPassword: &c.MySQL.Password,
		cfgKeyMySQLDatabase: &c.MySQL.Database,
		cfgKeyMySQLCharset:  &c.MySQL.Charset,
	} {
		if *dst, err = dp.GetString(key); err != nil {
			return err
		}
	}
	if c.MySQL.Port, err = dp.GetInt(cfgKeyMySQLPort); err != nil {
		return err
	}

	txLevel, err := dp.GetString(cfgKeyMySQLTxLevel)
	if err != nil {
		return err
	}
	if c.MySQL.TxIsolationLevel, err = ParseIsolationLevel(txLevel); err != nil {
		return dp.WrapKeyErr(cfgKeyMySQLTxLevel, err)
	}
	return nil
}

func (c *Config) setSQLiteConfig(dp config.DataProvider) error {
	path, err := dp.GetString(cfgKeySQLitePath)
	if err != nil {
		return err
	}
	if path == "" {
		return dp.WrapKeyErr(cfgKeySQLitePath, fmt.Errorf("must not be empty"))
	}
	c.SQLite.Path = path
	return nil
}

// TxIsolationLevel returns the isolation level used for transactions of the configured dialect.
func (c *Config) TxIsolationLevel() sql.IsolationLevel {
	if c.Dialect != DialectMySQL {
		return sql.LevelDefault
	}
	return sql.IsolationLevel(c.MySQL.TxIsolationLevel)
}

// DriverNameAndDSN returns the database/sql driver name and DSN for the dialect.
// Both are empty for an unknown dialect.
func (c *Config) DriverNameAndDSN() (driverName, dsn string) {
	switch c.Dialect {
	case DialectMySQL:
		return "mysql", MakeMySQLDSN(&c.MySQL)
	case DialectSQLite:
		return "sqlite3", MakeSQLiteDSN(&c.SQLite)
	}
	return "", ""
}
