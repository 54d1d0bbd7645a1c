package database

import "testing"

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"postgres scheme", "postgres://u:p@localhost:5432/db?sslmode=disable", "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{"postgresql scheme", "postgresql://u:p@db/studyhub", "pgx5://u:p@db/studyhub"},
		{"already pgx5", "pgx5://u:p@db/studyhub", "pgx5://u:p@db/studyhub"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := migrateURL(tt.input); got != tt.expected {
				t.Errorf("migrateURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}

	// one up and one down file per version
	if len(entries) == 0 || len(entries)%2 != 0 {
		t.Fatalf("expected paired up/down migrations, got %d files", len(entries))
	}
}
