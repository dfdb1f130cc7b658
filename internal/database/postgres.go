package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicateRoom is returned when a room code is already taken.
	ErrDuplicateRoom = errors.New("room code already exists")
	// ErrDuplicateAccount is returned when a username is already registered.
	ErrDuplicateAccount = errors.New("username already exists")
)

const uniqueViolation = pq.ErrorCode("23505")

type PgChatrixRepository struct {
	conn *sql.DB
}

func NewPgChatrixRepository(dsn string) (*PgChatrixRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgChatrixRepository{conn: db}, nil
}

func (db *PgChatrixRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgChatrixRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
