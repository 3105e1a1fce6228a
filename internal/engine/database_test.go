package engine

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestCreateOpenExecuteLifecycle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "school")
	log := zap.NewNop().Sugar()

	db, err := CreateDB(dir, log)
	if err != nil {
		t.Fatalf("CreateDB: %v", err)
	}

	if _, err := db.Execute("CREATE TABLE students (id INT, name STRING(16))"); err != nil {
		t.Fatalf("CREATE TABLE: %v", err)
	}
	if _, err := db.Execute("INSERT INTO students VALUES (1, 'Naruto')"); err != nil {
		t.Fatalf("INSERT: %v", err)
	}
	if err := db.CloseDB(); err != nil {
		t.Fatalf("CloseDB: %v", err)
	}

	db2, err := OpenDB(dir, log)
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer db2.CloseDB()

	rs, err := db2.Execute("SELECT name FROM students WHERE id = 1")
	if err != nil {
		t.Fatalf("SELECT: %v", err)
	}
	if len(rs.Rows) != 1 || rs.Rows[0][0].(string) != "Naruto" {
		t.Fatalf("unexpected result after reopen: %v", rs.Rows)
	}
}
