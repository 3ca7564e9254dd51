// Package migrations holds the goose schema used by integration tests and local setups.
// Production DDL is managed outside this repository.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
