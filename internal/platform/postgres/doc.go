// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx stdlib driver. Schema changes live in the
// embedded migrations directory and are applied with goose.
package postgres
