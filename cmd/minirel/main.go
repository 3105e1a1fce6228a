// Command minirel is the interactive SQL shell: a bufio.Scanner prompt
// loop over one open database directory, grounded on the teacher's
// cmd/repl/main.go (same "db> " prompt, same `.`-prefixed meta-command
// convention, same exit/quit handling), generalized from a single kv-store
// bptree to the full relational engine.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"minirel/internal/engine"
	"minirel/internal/query"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <database-directory>\n", os.Args[0])
		os.Exit(1)
	}
	dbDir := os.Args[1]

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	db, err := openOrCreate(dbDir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.CloseDB()

	fmt.Println("minirel - a disk-backed single-user relational store")
	fmt.Println("Type '.help' for meta-commands, 'exit' or 'quit' to leave")
	fmt.Println()

	runREPL(db)
}

func openOrCreate(dir string, log *zap.SugaredLogger) (*engine.Database, error) {
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return engine.OpenDB(dir, log)
	}
	return engine.CreateDB(dir, log)
}

func runREPL(db *engine.Database) {
	scanner := bufio.NewScanner(os.Stdin)
	var pending strings.Builder

	for {
		if pending.Len() == 0 {
			fmt.Print("db> ")
		} else {
			fmt.Print(" -> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		if pending.Len() == 0 {
			switch line {
			case "":
				continue
			case "exit", "quit", "\\q":
				fmt.Println("bye")
				return
			}
			if strings.HasPrefix(line, ".") {
				handleMetaCommand(line, db)
				continue
			}
		}

		pending.WriteString(line)
		pending.WriteByte(' ')
		if !strings.HasSuffix(line, ";") {
			continue
		}

		stmt := pending.String()
		pending.Reset()

		rs, err := db.Execute(stmt)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		query.Print(os.Stdout, rs)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
	}
}

func handleMetaCommand(cmd string, db *engine.Database) {
	switch cmd {
	case ".help":
		showHelp()
	case ".tables":
		showTables(db)
	default:
		fmt.Printf("unknown meta-command: %s\n", cmd)
		fmt.Println("type '.help' for available meta-commands")
	}
}

func showTables(db *engine.Database) {
	tabs := db.Catalog().AllTables()
	if len(tabs) == 0 {
		fmt.Println("(no tables)")
		return
	}
	for _, t := range tabs {
		fmt.Printf("%s (%d columns)\n", t.Name, len(t.Cols))
	}
}

func showHelp() {
	fmt.Println()
	fmt.Println("SQL statements (terminate with ';'):")
	fmt.Println("  CREATE TABLE name (col type(len), ...)")
	fmt.Println("  DROP TABLE name")
	fmt.Println("  CREATE INDEX ON table(col)")
	fmt.Println("  DROP INDEX ON table(col)")
	fmt.Println("  INSERT INTO table VALUES (...)")
	fmt.Println("  DELETE FROM table [WHERE ...]")
	fmt.Println("  UPDATE table SET col = val, ... [WHERE ...]")
	fmt.Println("  SELECT cols|* FROM tables [WHERE ...] [ORDER BY col]")
	fmt.Println()
	fmt.Println("Meta-commands:")
	fmt.Println("  .tables   list tables in the open database")
	fmt.Println("  .help     show this message")
	fmt.Println()
	fmt.Println("Control:")
	fmt.Println("  exit, quit   leave the shell")
	fmt.Println()
}
