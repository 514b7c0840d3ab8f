package secrets

import (
	"errors"
	"net"
	"net/url"
)

// DBCredentials is the Postgres secret layout used by RDS-managed secrets.
type DBCredentials struct {
	Username string
	Password string
	Host     string
	Port     string
	DBName   string
	SSLMode  string
}

// ParseDBCredentials reads a Postgres secret. A secret carrying a ready "dsn"
// field is returned as-is through DSN.
func ParseDBCredentials(m map[string]string) (DBCredentials, error) {
	c := DBCredentials{
		Username: m["username"],
		Password: m["password"],
		Host:     m["host"],
		Port:     m["port"],
		DBName:   m["dbname"],
		SSLMode:  m["sslmode"],
	}
	if c.Host == "" {
		return DBCredentials{}, errors.New("secret is missing host")
	}
	if c.Username == "" {
		return DBCredentials{}, errors.New("secret is missing username")
	}
	if c.Port == "" {
		c.Port = "5432"
	}
	if c.SSLMode == "" {
		c.SSLMode = "require"
	}
	return c, nil
}

// DSN renders a postgres:// connection URL.
func (c DBCredentials) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}
