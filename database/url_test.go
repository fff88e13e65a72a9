package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructDatabaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		baseURL      string
		databaseName string
		want         string
	}{
		{
			name:         "no database name",
			baseURL:      "postgres://u:p@localhost:5432/ponies?sslmode=require",
			databaseName: "",
			want:         "postgres://u:p@localhost:5432/ponies?sslmode=require",
		},
		{
			name:         "appends name and sslmode",
			baseURL:      "postgres://u:p@localhost:5432",
			databaseName: "pixelponies",
			want:         "postgres://u:p@localhost:5432/pixelponies?sslmode=disable",
		},
		{
			name:         "trailing slash",
			baseURL:      "postgres://u:p@localhost:5432/",
			databaseName: "pixelponies",
			want:         "postgres://u:p@localhost:5432/pixelponies?sslmode=disable",
		},
		{
			name:         "keeps existing query and sslmode",
			baseURL:      "postgres://u:p@db:5432?sslmode=verify-full",
			databaseName: "pixelponies",
			want:         "postgres://u:p@db:5432/pixelponies?sslmode=verify-full",
		},
		{
			name:         "existing query without sslmode",
			baseURL:      "postgres://u:p@db:5432?connect_timeout=5",
			databaseName: "pixelponies",
			want:         "postgres://u:p@db:5432/pixelponies?connect_timeout=5&sslmode=disable",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ConstructDatabaseURL(tt.baseURL, tt.databaseName))
		})
	}
}
