package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/luigitni/coredb/engine"
)

func main() {
	path := flag.String("path", "./data/coredb.dat", "path to the backing data file")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	e, err := engine.Open(engine.Options{Path: *path, Log: log})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer e.Close()

	demo(e, log)
}

// demo exercises the engine end to end: on first run create a table and
// index a column, then insert one row and print back what is there. There is no SQL
// surface or network listener; this binary is a sanity harness, not a
// server.
func demo(e *engine.Engine, log *logrus.Logger) {
	const table = "greetings"

	if e.Schema(table).Empty() {
		if _, err := e.CreateTable(table, []string{"id", "message"}); err != nil {
			log.WithError(err).Fatal("create table")
		}
		e.CreateIndex(table, "id")
	}

	rows, err := e.Scan(table)
	if err != nil {
		log.WithError(err).Fatal("scan")
	}

	next := len(rows)
	rid, err := e.InsertInto(table, []string{fmt.Sprint(next), fmt.Sprintf("hello #%d", next)})
	if err != nil {
		log.WithError(err).Fatal("insert")
	}

	row, err := e.Select(table, rid)
	if err != nil {
		log.WithError(err).Fatal("select")
	}

	fmt.Printf("inserted: %s\n", row)

	all, err := e.Scan(table)
	if err != nil {
		log.WithError(err).Fatal("scan")
	}

	fmt.Printf("%s now holds %d row(s):\n", table, len(all))
	for _, r := range all {
		fmt.Printf("  %s\n", r)
	}
}
