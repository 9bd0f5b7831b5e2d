// Package store implements the repository interfaces the core packages
// declare (authz.Store, numbering.Store) on top of gorm/postgres.
package store

import "gorm.io/gorm"

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for request-scoped transactions.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithTx returns a Store bound to the given transaction so core operations
// join the request's transaction boundary.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}
