// Command overrides inspects and maintains override save slots.
//
//	overrides -db saves/save.db slots
//	overrides -db saves/save.db -slot default dump
//	overrides -db saves/save.db -slot default compact
//	overrides -pg -slot default verify
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"reflect"

	"github.com/AaronLay10/SceneEngine/internal/override"
	"github.com/AaronLay10/SceneEngine/internal/storage/postgres"
	"github.com/AaronLay10/SceneEngine/internal/storage/sqlite"
)

// slotJournal is the part of a journal the tool needs.
type slotJournal interface {
	Load() ([]string, error)
	Replace(cmds []string) error
}

var errUsage = errors.New("usage: overrides [-db path | -pg] [-slot name] slots|dump|compact|verify")

func main() {
	log.SetFlags(0)
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("overrides: %v", err)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("overrides", flag.ContinueOnError)
	dbPath := fs.String("db", "", "sqlite save file")
	usePG := fs.Bool("pg", false, "use the Postgres journal (PG* environment)")
	engineID := fs.String("engine", "", "engine id for the Postgres client")
	slot := fs.String("slot", "default", "save slot")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || (*dbPath == "") == !*usePG {
		return errUsage
	}
	cmd := fs.Arg(0)

	var j slotJournal
	var slots func() ([]string, error)
	if *usePG {
		pg, err := postgres.New(*engineID)
		if err != nil {
			return err
		}
		defer pg.Close()
		j = pg.Journal(*slot)
	} else {
		db, err := sqlite.Open(*dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		j = db.Journal(*slot)
		slots = db.Slots
	}

	switch cmd {
	case "slots":
		if slots == nil {
			return fmt.Errorf("slots is only supported for sqlite")
		}
		names, err := slots()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(out, n)
		}
		return nil
	case "dump":
		cmds, err := j.Load()
		if err != nil {
			return err
		}
		for _, c := range cmds {
			fmt.Fprintln(out, c)
		}
		return nil
	case "compact":
		return compact(j, out)
	case "verify":
		return verify(j, out)
	default:
		return errUsage
	}
}

// compact replaces the slot's stream with the minimal equivalent one.
func compact(j slotJournal, out io.Writer) error {
	cmds, err := j.Load()
	if err != nil {
		return err
	}
	store, err := override.Replay(cmds)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	compacted := store.Compact()
	if err := j.Replace(compacted); err != nil {
		return err
	}
	fmt.Fprintf(out, "compacted %d commands to %d\n", len(cmds), len(compacted))
	return nil
}

// verify checks that the stream parses and that its compacted form
// reproduces the same overrides.
func verify(j slotJournal, out io.Writer) error {
	cmds, err := j.Load()
	if err != nil {
		return err
	}
	full, err := override.Replay(cmds)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	compacted, err := override.Replay(full.Compact())
	if err != nil {
		return fmt.Errorf("replay compacted: %w", err)
	}
	if !reflect.DeepEqual(full.Snapshot(), compacted.Snapshot()) {
		return fmt.Errorf("compacted stream diverges from the full stream")
	}
	fmt.Fprintf(out, "ok: %d commands, %d objects\n", len(cmds), full.Len())
	return nil
}
