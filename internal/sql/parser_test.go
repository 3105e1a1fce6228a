package sql

import "testing"

func parseOne(t *testing.T, stmt string) Statement {
	t.Helper()
	tokens, err := NewLexer(stmt).Tokenize()
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", stmt, err)
	}
	got, err := NewParser(tokens).Parse()
	if err != nil {
		t.Fatalf("Parse(%q): %v", stmt, err)
	}
	return got
}

func TestParseCreateTable(t *testing.T) {
	got := parseOne(t, "CREATE TABLE students (id INT, gpa FLOAT, name STRING(32));")
	stmt, ok := got.(*CreateTableStmt)
	if !ok {
		t.Fatalf("got %T, want *CreateTableStmt", got)
	}
	if stmt.Table != "students" || len(stmt.Cols) != 3 {
		t.Fatalf("unexpected statement: %+v", stmt)
	}
	if stmt.Cols[2].Type != "STRING" || stmt.Cols[2].Len != 32 {
		t.Fatalf("unexpected third column: %+v", stmt.Cols[2])
	}
}

func TestParseDropTableAndIndex(t *testing.T) {
	if s, ok := parseOne(t, "DROP TABLE students;").(*DropTableStmt); !ok || s.Table != "students" {
		t.Fatalf("unexpected DROP TABLE parse: %+v", s)
	}
	if s, ok := parseOne(t, "DROP INDEX ON students(id);").(*DropIndexStmt); !ok || s.Table != "students" || s.Column != "id" {
		t.Fatalf("unexpected DROP INDEX parse: %+v", s)
	}
}

func TestParseCreateIndex(t *testing.T) {
	s, ok := parseOne(t, "CREATE INDEX ON students(id);").(*CreateIndexStmt)
	if !ok || s.Table != "students" || s.Column != "id" {
		t.Fatalf("unexpected CREATE INDEX parse: %+v", s)
	}
}

func TestParseInsert(t *testing.T) {
	s, ok := parseOne(t, "INSERT INTO students VALUES (1, 3.5, 'Naruto');").(*InsertStmt)
	if !ok {
		t.Fatalf("got %T, want *InsertStmt", s)
	}
	if len(s.Values) != 3 || s.Values[0].Kind != "int" || s.Values[1].Kind != "float" || s.Values[2].Str != "Naruto" {
		t.Fatalf("unexpected values: %+v", s.Values)
	}
}

func TestParseDeleteWithWhere(t *testing.T) {
	s, ok := parseOne(t, "DELETE FROM students WHERE id = 1 AND gpa >= 3;").(*DeleteStmt)
	if !ok {
		t.Fatalf("got %T, want *DeleteStmt", s)
	}
	if s.Table != "students" || len(s.Conds) != 2 {
		t.Fatalf("unexpected delete: %+v", s)
	}
	if s.Conds[0].Col != "id" || s.Conds[0].Op != "=" || s.Conds[0].Rhs.Int != 1 {
		t.Fatalf("unexpected first cond: %+v", s.Conds[0])
	}
}

func TestParseUpdate(t *testing.T) {
	s, ok := parseOne(t, "UPDATE students SET gpa = 4, name = 'Sasuke' WHERE id = 1;").(*UpdateStmt)
	if !ok {
		t.Fatalf("got %T, want *UpdateStmt", s)
	}
	if len(s.Sets) != 2 || s.Sets[0].Col != "gpa" || s.Sets[1].Val.Str != "Sasuke" {
		t.Fatalf("unexpected sets: %+v", s.Sets)
	}
	if len(s.Conds) != 1 {
		t.Fatalf("unexpected conds: %+v", s.Conds)
	}
}

func TestParseSelectStar(t *testing.T) {
	s, ok := parseOne(t, "SELECT * FROM students;").(*SelectStmt)
	if !ok {
		t.Fatalf("got %T, want *SelectStmt", s)
	}
	if len(s.Cols) != 0 || len(s.Tables) != 1 || s.Tables[0] != "students" {
		t.Fatalf("unexpected select: %+v", s)
	}
}

func TestParseSelectJoinOrderBy(t *testing.T) {
	s, ok := parseOne(t, "SELECT a.id, b.name FROM a, b WHERE a.id = b.id ORDER BY a.id;").(*SelectStmt)
	if !ok {
		t.Fatalf("got %T, want *SelectStmt", s)
	}
	if len(s.Tables) != 2 || len(s.Cols) != 2 || s.OrderBy != "a.id" {
		t.Fatalf("unexpected select: %+v", s)
	}
	if len(s.Conds) != 1 || !s.Conds[0].IsCol || s.Conds[0].Col != "a.id" || s.Conds[0].RhsCol != "b.id" {
		t.Fatalf("unexpected join condition: %+v", s.Conds)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"SELECT FROM students;",
		"CREATE TABLE (id INT);",
		"INSERT INTO students VALUES;",
		"UPDATE students WHERE id = 1;",
	}
	for _, stmt := range tests {
		tokens, err := NewLexer(stmt).Tokenize()
		if err != nil {
			continue
		}
		if _, err := NewParser(tokens).Parse(); err == nil {
			t.Errorf("Parse(%q): expected an error, got none", stmt)
		}
	}
}
