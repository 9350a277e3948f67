package postgresql

import (
	"database/sql"
	"sync"

	_ "github.com/lib/pq"
	"github.com/tsel-ticketmaster/tm-booking/config"
)

var (
	once sync.Once
	db   *sql.DB
)

func GetDatabase() *sql.DB {
	once.Do(func() {
		c := config.Get()

		conn, err := sql.Open("postgres", c.PostgreSQL.DSN)
		if err != nil {
			panic(err)
		}

		conn.SetMaxOpenConns(c.PostgreSQL.MaxOpenConns)
		conn.SetMaxIdleConns(c.PostgreSQL.MaxIdleConns)
		conn.SetConnMaxLifetime(c.PostgreSQL.ConnMaxLifetime)

		db = conn
	})

	return db
}
