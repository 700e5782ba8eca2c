// Package migrations встраивает SQL-миграции в бинарь для goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
