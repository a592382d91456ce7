package configlibsql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Struct points at either a local sqlite file or a remote libsql database.
// When Url is set the remote database is used and File is ignored.
type Struct struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// Enabled reports whether any database was configured.
func (config Struct) Enabled() bool {
	return config.File != "" || config.Url != ""
}

func (config Struct) open() (*sql.DB, error) {
	if config.Url != "" {
		values := url.Values{}
		if config.AuthToken != "" {
			values.Add("authToken", config.AuthToken)
		}
		target := config.Url
		if len(values) > 0 {
			target += "?" + values.Encode()
		}
		return sql.Open("libsql", target)
	}

	if config.File == "" {
		return nil, fmt.Errorf("neither a file nor a url was specified")
	}
	if config.File != ":memory:" {
		err := os.MkdirAll(filepath.Dir(config.File), 0777)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	// sqlite only allows a single writer, a single connection avoids SQLITE_BUSY
	// and keeps `:memory:` databases from being split across connections.
	db.SetMaxOpenConns(1)
	if config.File != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// OpenDB opens the database and applies the given schema to it.
func (config Struct) OpenDB(ctx context.Context, schema string) (*sql.DB, error) {
	db, err := config.open()
	if err != nil {
		return nil, err
	}
	if schema == "" {
		return db, nil
	}
	_, err = db.ExecContext(ctx, schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
