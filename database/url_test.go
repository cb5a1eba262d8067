package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructDatabaseURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		database string
		want     string
	}{
		{"no database name", "postgres://u:p@host:5432", "", "postgres://u:p@host:5432"},
		{"plain", "postgres://u:p@host:5432", "gamestake", "postgres://u:p@host:5432/gamestake?sslmode=disable"},
		{"trailing slash", "postgres://u:p@host:5432/", "gamestake", "postgres://u:p@host:5432/gamestake?sslmode=disable"},
		{"existing query", "postgres://u:p@host:5432?connect_timeout=5", "gamestake", "postgres://u:p@host:5432/gamestake?connect_timeout=5&sslmode=disable"},
		{"explicit sslmode", "postgres://u:p@host:5432?sslmode=require", "gamestake", "postgres://u:p@host:5432/gamestake?sslmode=require"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConstructDatabaseURL(tt.baseURL, tt.database))
		})
	}
}
