// SPDX-License-Identifier: Apache-2.0
// Command adjutant runs the personal assistant from the terminal: one-shot
// workflow runs, the unit directory, the notification inbox, and an MCP
// server surface for external clients.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dmoret/adjutant/pkg/config"
	"github.com/dmoret/adjutant/pkg/core"
	adjutantmcp "github.com/dmoret/adjutant/pkg/mcp"
	"github.com/dmoret/adjutant/pkg/notify"
	"github.com/dmoret/adjutant/pkg/orchestrator"
	"github.com/dmoret/adjutant/pkg/telemetry"
)

const version = "0.1.0"

type globalFlags struct {
	ConfigArgs []string
	Timeout    time.Duration
	JSON       bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fatal(err)
	}
	if global.Help || len(args) == 0 {
		printUsage()
		return
	}

	cfg, err := config.LoadWithCLI(global.ConfigArgs)
	if err != nil {
		fatal(err)
	}

	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	orchOpts := []orchestrator.Option{orchestrator.WithLogger(logger)}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitWithConfig(cfg.Telemetry.ServiceName, version, telemetry.Config{
			Exporter:     cfg.Telemetry.Exporter,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			OTLPInsecure: cfg.Telemetry.OTLPInsecure,
		})
		if err != nil {
			fatal(err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry.shutdown", "error", err)
			}
		}()

		metrics, err := telemetry.NewWorkflowMetrics()
		if err != nil {
			fatal(err)
		}
		orchOpts = append(orchOpts, orchestrator.WithMetrics(metrics))
	}

	newOrchestrator := func() *orchestrator.Orchestrator {
		orch, err := orchestrator.New(ctx, cfg, orchOpts...)
		if err != nil {
			fatal(err)
		}
		return orch
	}

	switch cmd := args[0]; cmd {
	case "run":
		runRequest(ctx, global, newOrchestrator(), args[1:])
	case "units":
		ensureNoArgs(args[1:])
		runUnits(global, newOrchestrator())
	case "notify":
		runNotify(ctx, global, newOrchestrator(), args[1:])
	case "mcp":
		runMCP(global, newOrchestrator(), args[1:])
	case "help":
		printUsage()
	case "version":
		fmt.Println(version)
	default:
		fatal(fmt.Errorf("unknown command %q", cmd))
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	flags := globalFlags{Timeout: 2 * time.Minute}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		switch {
		case arg == "-h" || arg == "--help":
			flags.Help = true
			return flags, nil, nil
		case arg == "--json":
			flags.JSON = true
		case arg == "--config" || arg == "--profile" || arg == "--set":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for %s", arg)
			}
			flags.ConfigArgs = append(flags.ConfigArgs, arg, args[i+1])
			i++
		case strings.HasPrefix(arg, "--config=") ||
			strings.HasPrefix(arg, "--profile=") ||
			strings.HasPrefix(arg, "--set="):
			flags.ConfigArgs = append(flags.ConfigArgs, arg)
		case arg == "--timeout":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --timeout")
			}
			value, err := time.ParseDuration(args[i+1])
			if err != nil {
				return flags, nil, fmt.Errorf("invalid --timeout: %w", err)
			}
			flags.Timeout = value
			i++
		case strings.HasPrefix(arg, "--timeout="):
			value, err := time.ParseDuration(strings.TrimPrefix(arg, "--timeout="))
			if err != nil {
				return flags, nil, fmt.Errorf("invalid --timeout: %w", err)
			}
			flags.Timeout = value
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

func runRequest(ctx context.Context, flags globalFlags, orch *orchestrator.Orchestrator, args []string) {
	if len(args) == 0 {
		fatal(errors.New("usage: adjutant run <request>"))
	}
	request := strings.TrimSpace(strings.Join(args, " "))
	if request == "" {
		fatal(errors.New("empty request"))
	}

	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()

	result, err := orch.Handle(ctx, request)
	if err != nil && len(result.Stages) == 0 {
		fatal(err)
	}

	if flags.JSON {
		printJSON(result)
		return
	}
	printRunResult(os.Stdout, result, err)
}

func printRunResult(out io.Writer, result *orchestrator.RunResult, runErr error) {
	fmt.Fprintf(out, "run %s\n", result.RunID)
	for _, stage := range result.Stages {
		fmt.Fprintf(out, "\nstage %s (%s)\n", stage.Name, stage.Kind)
		writer := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
		writeRow(writer, "UNIT", "OPERATION", "STATUS", "OUTPUT")
		for _, member := range stage.Members {
			status := "ok"
			detail := renderOutput(member.Output)
			if member.Failed {
				status = "failed"
				detail = member.Reason
			}
			writeRow(writer, member.Unit, member.Operation, status, truncate(detail, 100))
		}
		_ = writer.Flush()
		if stage.Reason != "" {
			fmt.Fprintf(out, "stage note: %s\n", stage.Reason)
		}
	}
	if runErr != nil {
		fmt.Fprintf(out, "\nrun interrupted: %v\n", runErr)
	}
}

func runUnits(flags globalFlags, orch *orchestrator.Orchestrator) {
	units := orch.Registry().Units()

	if flags.JSON {
		printJSON(units)
		return
	}

	writer := newTabWriter()
	writeRow(writer, "UNIT", "STATUS", "ENTRY", "OPERATIONS", "REASON")
	for _, unit := range units {
		names := make([]string, 0, len(unit.Operations))
		for _, op := range unit.Operations {
			names = append(names, op.Name)
		}
		writeRow(writer, unit.Name, string(unit.Status), unit.Entry,
			strings.Join(names, ","), unit.Reason)
	}
	_ = writer.Flush()
}

func runNotify(ctx context.Context, flags globalFlags, orch *orchestrator.Orchestrator, args []string) {
	if len(args) == 0 {
		fatal(errors.New("usage: adjutant notify <send|list|read|clear|remind>"))
	}
	store := orch.Store()

	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()

	switch args[0] {
	case "send":
		cmd := flag.NewFlagSet("notify send", flag.ContinueOnError)
		title := cmd.String("title", "", "Notification title")
		message := cmd.String("message", "", "Notification message")
		priority := cmd.String("priority", "", "Priority: low, normal, high, urgent")
		if err := cmd.Parse(args[1:]); err != nil {
			fatal(err)
		}
		prio, err := notify.ParsePriority(*priority)
		if err != nil {
			fatal(err)
		}
		record, err := store.Send(ctx, *title, *message, prio, nil)
		if err != nil {
			fatal(err)
		}
		if flags.JSON {
			printJSON(record)
			return
		}
		fmt.Printf("sent notification %d\n", record.ID)
	case "list":
		cmd := flag.NewFlagSet("notify list", flag.ContinueOnError)
		unread := cmd.Bool("unread", false, "Only unread notifications")
		if err := cmd.Parse(args[1:]); err != nil {
			fatal(err)
		}
		items, err := store.List(ctx, *unread)
		if err != nil {
			fatal(err)
		}
		if flags.JSON {
			printJSON(items)
			return
		}
		writer := newTabWriter()
		writeRow(writer, "ID", "PRIORITY", "READ", "CREATED", "TITLE", "MESSAGE")
		for _, item := range items {
			writeRow(writer,
				strconv.FormatInt(item.ID, 10),
				string(item.Priority),
				strconv.FormatBool(item.Read),
				item.CreatedAt.UTC().Format(time.RFC3339),
				item.Title,
				truncate(item.Message, 80),
			)
		}
		_ = writer.Flush()
	case "read":
		if len(args) < 2 {
			fatal(errors.New("usage: adjutant notify read <id>"))
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fatal(fmt.Errorf("invalid notification id %q", args[1]))
		}
		record, err := store.MarkRead(ctx, id)
		if err != nil {
			fatal(err)
		}
		if flags.JSON {
			printJSON(record)
			return
		}
		fmt.Printf("marked %d read\n", record.ID)
	case "clear":
		cmd := flag.NewFlagSet("notify clear", flag.ContinueOnError)
		all := cmd.Bool("all", false, "Remove unread notifications too")
		if err := cmd.Parse(args[1:]); err != nil {
			fatal(err)
		}
		removed, err := store.Clear(ctx, !*all)
		if err != nil {
			fatal(err)
		}
		if flags.JSON {
			printJSON(map[string]int{"removed": removed})
			return
		}
		fmt.Printf("removed %d notifications\n", removed)
	case "remind":
		cmd := flag.NewFlagSet("notify remind", flag.ContinueOnError)
		title := cmd.String("title", "", "Reminder title")
		message := cmd.String("message", "", "Reminder message")
		delay := cmd.Duration("delay", time.Minute, "Delay before the reminder is due")
		priority := cmd.String("priority", string(notify.PriorityHigh), "Priority: low, normal, high, urgent")
		if err := cmd.Parse(args[1:]); err != nil {
			fatal(err)
		}
		prio, err := notify.ParsePriority(*priority)
		if err != nil {
			fatal(err)
		}
		record, err := store.ScheduleReminder(ctx, *title, *message, *delay, prio)
		if err != nil {
			fatal(err)
		}
		if flags.JSON {
			printJSON(record)
			return
		}
		fmt.Printf("reminder %d due at %s\n", record.ID, record.DeliverAt.UTC().Format(time.RFC3339))
	default:
		fatal(fmt.Errorf("unknown notify subcommand %q", args[0]))
	}
}

// runMCP exposes the whole workflow as one tool plus the notification
// operations, so an MCP client can both drive runs and manage the inbox.
func runMCP(flags globalFlags, orch *orchestrator.Orchestrator, args []string) {
	cmd := flag.NewFlagSet("mcp", flag.ContinueOnError)
	httpAddr := cmd.String("http", "", "Serve streamable HTTP on this address instead of stdio")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}
	_ = flags

	server := adjutantmcp.NewServer("adjutant", version)

	rootOps, err := orch.Builder().Build()
	if err != nil {
		fatal(err)
	}
	server.RegisterOperations(rootOps)
	if unit, ok := orch.Registry().Resolve("notification"); ok {
		server.RegisterUnit(unit)
	}

	if *httpAddr != "" {
		if err := server.ServeStreamableHTTP(*httpAddr); err != nil {
			fatal(err)
		}
		return
	}
	if err := server.ServeStdio(); err != nil {
		fatal(err)
	}
}

func renderOutput(output any) string {
	switch value := output.(type) {
	case nil:
		return ""
	case string:
		return value
	case core.DegradedResult:
		return value.Reason
	case map[string]any:
		if summary, ok := value["summary"].(string); ok && summary != "" {
			return summary
		}
	}
	payload, err := json.Marshal(output)
	if err != nil {
		return fmt.Sprint(output)
	}
	return string(payload)
}

func printJSON(value any) {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(payload))
}

func newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
}

func writeRow(writer *tabwriter.Writer, cols ...string) {
	for i, col := range cols {
		cols[i] = normalizeCell(col)
	}
	fmt.Fprintln(writer, strings.Join(cols, "\t"))
}

func normalizeCell(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return strings.Join(strings.Fields(value), " ")
}

func truncate(value string, limit int) string {
	value = normalizeCell(value)
	if limit <= 0 || len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}

func printUsage() {
	fmt.Println(`Adjutant — personal assistant orchestrator

Usage:
  adjutant [global flags] <command> [args]

Global flags:
  --config <path>      Path to config.yaml
  --profile <name>     Config profile overlay (config.<name>.yaml)
  --set key=value      Override config (repeatable)
  --timeout <dur>      Request timeout (default 2m)
  --json               JSON output

Commands:
  run <request>        Run the assistant workflow for a request
  units                Show the capability unit directory
  notify send --title <t> --message <m> [--priority <p>]
  notify list [--unread]
  notify read <id>
  notify clear [--all]
  notify remind --title <t> --message <m> [--delay 10m] [--priority <p>]
  mcp [--http <addr>]  Serve tools over MCP (stdio by default)
  version
  help`)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func ensureNoArgs(args []string) {
	if len(args) > 0 {
		fatal(fmt.Errorf("unexpected args: %v", args))
	}
}
