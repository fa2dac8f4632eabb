package store

import (
	"fmt"
	"net/url"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dvloznov/expense-ingest/internal/config"
)

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
)

// Option defines connection options for PostgreSQL. ConnString, when set,
// is used as is.
type Option struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	Params     map[string]string
	ConnString string
	Config     *gorm.Config
}

// Open connects to PostgreSQL.
func Open(opt Option) (*gorm.DB, error) {
	config := opt.Config
	if config == nil {
		config = &gorm.Config{Logger: gormlogger.Discard}
	}

	db, err := gorm.Open(postgres.Open(opt.dsn()), config)
	if err != nil {
		return nil, fmt.Errorf("store.Open: %w", err)
	}
	return db, nil
}

// Connect opens PostgreSQL and wraps it in a Store.
func Connect(opt Option) (*Store, error) {
	db, err := Open(opt)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// OptionFromConfig maps process configuration onto connection options.
func OptionFromConfig(db config.Database) Option {
	return Option{
		Host:       db.Host,
		Port:       db.Port,
		User:       db.User,
		Password:   db.Password,
		Database:   db.Name,
		SSLMode:    db.SSLMode,
		ConnString: db.URL,
	}
}

func (opt Option) dsn() string {
	if opt.ConnString != "" {
		return opt.ConnString
	}

	host := opt.Host
	if host == "" {
		host = defaultPostgresHost
	}

	port := opt.Port
	if port == 0 {
		port = defaultPostgresPort
	}

	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}

	if opt.User != "" {
		if opt.Password != "" {
			u.User = url.UserPassword(opt.User, opt.Password)
		} else {
			u.User = url.User(opt.User)
		}
	}

	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	for key, value := range opt.Params {
		if key == "" {
			continue
		}
		query.Set(key, value)
	}
	u.RawQuery = query.Encode()

	return u.String()
}
