// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/jetstream/internal/platform/migration"
)

func TestToPgx5DSN(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@db:5432/jet":   "pgx5://u:p@db:5432/jet",
		"postgresql://u:p@db:5432/jet": "pgx5://u:p@db:5432/jet",
		"pgx5://u:p@db:5432/jet":       "pgx5://u:p@db:5432/jet",
		"host=db user=u":               "host=db user=u",
	}

	for input, expected := range tests {
		assert.Equal(t, expected, migration.ToPgx5DSN(input), input)
	}
}
