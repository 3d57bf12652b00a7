// Command mappingctl is the operator CLI for the Admin Mapping Workbench
// (spec.md §4.15): list the UNMAPPED/AMBIGUOUS queue and approve, reject, or
// snooze events from a terminal, without going through the HTTP admin API.
//
// Commands:
//
//	mappingctl queue [--state OPEN|APPROVED|REJECTED|SNOOZED] [--insurer CODE] [--page N]
//	mappingctl show --event <event_id>
//	mappingctl approve --event <event_id> --code <coverage_code> --resolution ALIAS|NAME_MAP --actor <name> [--note TEXT]
//	mappingctl reject --event <event_id> --actor <name> [--note TEXT]
//	mappingctl snooze --event <event_id> --actor <name> [--note TEXT]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/covercompare/engine/internal/admin"
	"github.com/covercompare/engine/internal/canon"
	"github.com/covercompare/engine/internal/config"
	"github.com/covercompare/engine/internal/model"
	"github.com/covercompare/engine/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := dispatch(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "mappingctl:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("mappingctl - Admin Mapping Workbench CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  queue [--state OPEN|APPROVED|REJECTED|SNOOZED] [--insurer CODE] [--page N]")
	fmt.Println("  show --event <event_id>")
	fmt.Println("  approve --event <event_id> --code <coverage_code> --resolution ALIAS|NAME_MAP --actor <name> [--note TEXT]")
	fmt.Println("  reject --event <event_id> --actor <name> [--note TEXT]")
	fmt.Println("  snooze --event <event_id> --actor <name> [--note TEXT]")
}

func dispatch(cmd string, args []string) error {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := storage.New(ctx, cfg.QueryDatabaseURL, cfg.AdminDatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	registry := canon.New()
	if err := registry.Load(ctx, db); err != nil {
		return fmt.Errorf("canon: %w", err)
	}
	workbench := admin.New(db.AdminPool(), registry)

	switch cmd {
	case "queue":
		return runQueue(ctx, workbench, args)
	case "show":
		return runShow(ctx, workbench, args)
	case "approve":
		return runApprove(ctx, workbench, args)
	case "reject":
		return runReject(ctx, workbench, args)
	case "snooze":
		return runSnooze(ctx, workbench, args)
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runQueue(ctx context.Context, w *admin.Workbench, args []string) error {
	fs := flag.NewFlagSet("queue", flag.ExitOnError)
	stateFlag := fs.String("state", "", "filter by state (OPEN|APPROVED|REJECTED|SNOOZED)")
	insurerFlag := fs.String("insurer", "", "filter by insurer code")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var state *model.MappingEventState
	if *stateFlag != "" {
		s := model.MappingEventState(*stateFlag)
		state = &s
	}
	var insurer *model.InsurerCode
	if *insurerFlag != "" {
		i := model.InsurerCode(*insurerFlag)
		insurer = &i
	}

	events, err := w.GetQueue(ctx, state, insurer, *page, 20)
	if err != nil {
		return err
	}
	return printJSON(events)
}

func runShow(ctx context.Context, w *admin.Workbench, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	eventID := fs.String("event", "", "event id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *eventID == "" {
		return fmt.Errorf("--event is required")
	}

	ev, found, err := w.GetEventDetail(ctx, *eventID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("event %s not found", *eventID)
	}
	return printJSON(ev)
}

func runApprove(ctx context.Context, w *admin.Workbench, args []string) error {
	fs := flag.NewFlagSet("approve", flag.ExitOnError)
	eventID := fs.String("event", "", "event id")
	code := fs.String("code", "", "canonical coverage code")
	resolution := fs.String("resolution", "", "ALIAS|NAME_MAP")
	actor := fs.String("actor", "", "actor name")
	note := fs.String("note", "", "audit note")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *eventID == "" || *code == "" || *resolution == "" || *actor == "" {
		return fmt.Errorf("--event, --code, --resolution and --actor are required")
	}

	if err := w.Approve(ctx, *eventID, *code, model.ResolutionType(*resolution), *actor, *note); err != nil {
		return err
	}
	fmt.Printf("approved %s as %s (%s)\n", *eventID, *code, *resolution)
	return nil
}

func runReject(ctx context.Context, w *admin.Workbench, args []string) error {
	fs := flag.NewFlagSet("reject", flag.ExitOnError)
	eventID := fs.String("event", "", "event id")
	actor := fs.String("actor", "", "actor name")
	note := fs.String("note", "", "audit note")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *eventID == "" || *actor == "" {
		return fmt.Errorf("--event and --actor are required")
	}

	if err := w.Reject(ctx, *eventID, *actor, *note); err != nil {
		return err
	}
	fmt.Printf("rejected %s\n", *eventID)
	return nil
}

func runSnooze(ctx context.Context, w *admin.Workbench, args []string) error {
	fs := flag.NewFlagSet("snooze", flag.ExitOnError)
	eventID := fs.String("event", "", "event id")
	actor := fs.String("actor", "", "actor name")
	note := fs.String("note", "", "audit note")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *eventID == "" || *actor == "" {
		return fmt.Errorf("--event and --actor are required")
	}

	if err := w.Snooze(ctx, *eventID, *actor, *note); err != nil {
		return err
	}
	fmt.Printf("snoozed %s\n", *eventID)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
