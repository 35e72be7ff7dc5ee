package migrations

import "embed"

// FS содержит SQL миграции для обоих диалектов
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
