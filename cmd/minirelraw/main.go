// Command minirelraw is the bare, non-interactive counterpart to minirel:
// no prompt, no meta-commands, just statements read from stdin and
// executed one at a time. Grounded on original_source/src/rawcli.cpp,
// which creates the database directory if absent, opens it, then loops
// parsing and interpreting statements until EOF, logging errors to
// stderr instead of aborting.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"minirel/internal/engine"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <database-directory>\n", os.Args[0])
		os.Exit(1)
	}
	dbDir := os.Args[1]

	log := zap.NewNop().Sugar()

	var db *engine.Database
	var err error
	if info, statErr := os.Stat(dbDir); statErr == nil && info.IsDir() {
		db, err = engine.OpenDB(dbDir, log)
	} else {
		db, err = engine.CreateDB(dbDir, log)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer db.CloseDB()

	scanner := bufio.NewScanner(os.Stdin)
	var pending strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		pending.WriteString(line)
		pending.WriteByte(' ')
		if !strings.HasSuffix(strings.TrimSpace(line), ";") {
			continue
		}

		stmt := pending.String()
		pending.Reset()
		if strings.TrimSpace(stmt) == "" {
			continue
		}

		if _, err := db.Execute(stmt); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
}
