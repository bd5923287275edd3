package ui

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awion/cryon-soc/config"
	"github.com/awion/cryon-soc/model"
	"github.com/awion/cryon-soc/public/analyzer"
	"github.com/awion/cryon-soc/public/monitor"
	"github.com/awion/cryon-soc/public/settings"
	"github.com/awion/cryon-soc/public/storage"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Terminal palette
var (
	colorRed     = color.New(color.FgRed).SprintFunc()
	colorGreen   = color.New(color.FgGreen).SprintFunc()
	colorYellow  = color.New(color.FgYellow).SprintFunc()
	colorBlue    = color.New(color.FgBlue).SprintFunc()
	colorMagenta = color.New(color.FgMagenta).SprintFunc()
	colorCyan    = color.New(color.FgCyan).SprintFunc()
	colorWhite   = color.New(color.FgWhite).SprintFunc()
	colorBold    = color.New(color.Bold).SprintFunc()
)

const (
	defaultEventLimit = 10
	defaultAlertLimit = 10
	maxHistory        = 50
)

// CLI is the terminal dashboard. It doubles as a monitor sink so the live
// view is redrawn on every refresh.
type CLI struct {
	storage  *storage.Storage
	monitor  *monitor.Monitor
	settings *settings.Manager

	in  io.Reader
	out io.Writer

	// guards writes to out between the command loop and live redraws
	outMutex sync.Mutex
	live     atomic.Bool

	ctx        context.Context
	startTime  time.Time
	cmdHistory []string
}

// NewCLI creates a new CLI reading commands from in and drawing to out
func NewCLI(store *storage.Storage, mon *monitor.Monitor, manager *settings.Manager, in io.Reader, out io.Writer) *CLI {
	c := &CLI{
		storage:    store,
		monitor:    mon,
		settings:   manager,
		in:         in,
		out:        out,
		ctx:        context.Background(),
		startTime:  time.Now(),
		cmdHistory: make([]string, 0, maxHistory),
	}
	mon.AddSink(c)
	return c
}

// Publish redraws the dashboard while the live view is on
func (c *CLI) Publish(snapshot model.Snapshot) {
	if !c.live.Load() {
		return
	}
	c.render(func(w io.Writer) {
		clearScreen(w)
		fmt.Fprintf(w, "%s  refresh every %s, type %s to exit\n",
			colorBold(colorGreen("● LIVE")), c.monitor.Interval(), colorCyan("stop"))
		c.writeDashboard(w, snapshot)
		fmt.Fprint(w, "\n> ")
	})
}

// Run processes commands until quit, end of input or ctx is cancelled. The
// live view is stopped on return.
func (c *CLI) Run(ctx context.Context) error {
	c.ctx = ctx
	defer c.stopLive()

	c.render(func(w io.Writer) {
		showBanner(w)
		fmt.Fprintln(w, "Cryon SOC Command Line Interface")
		fmt.Fprintln(w, "Type 'help' for available commands")
	})

	scanner := bufio.NewScanner(c.in)
	for {
		if ctx.Err() != nil {
			return nil
		}

		c.render(func(w io.Writer) { fmt.Fprint(w, "\n> ") })
		if !scanner.Scan() {
			return scanner.Err()
		}

		command := strings.TrimSpace(scanner.Text())
		if command == "" {
			continue
		}

		// Add to command history, avoiding duplicates
		if len(c.cmdHistory) == 0 || c.cmdHistory[len(c.cmdHistory)-1] != command {
			if len(c.cmdHistory) >= maxHistory {
				c.cmdHistory = c.cmdHistory[1:]
			}
			c.cmdHistory = append(c.cmdHistory, command)
		}

		if !c.executeCommand(command) {
			return nil
		}
	}
}

// render builds output off-lock and writes it in one piece
func (c *CLI) render(fn func(w io.Writer)) {
	var buf bytes.Buffer
	fn(&buf)

	c.outMutex.Lock()
	defer c.outMutex.Unlock()
	c.out.Write(buf.Bytes())
}

// executeCommand runs one command line and reports whether to keep reading
func (c *CLI) executeCommand(command string) bool {
	parts := parseCommandWithQuotes(command)
	if len(parts) == 0 {
		return true
	}

	// Case-insensitive command, arguments keep their case
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "h", "?":
		c.render(showHelp)
	case "menu", "m":
		c.render(c.showMenu)
	case "dashboard", "1", "d":
		c.showDashboard()
	case "events", "2", "e":
		c.handleEventCommand(args)
	case "alerts", "3", "a":
		c.handleAlertCommand(args)
	case "live", "4", "l":
		c.startLive()
	case "stop":
		c.handleStop()
	case "report", "5", "r":
		c.handleReportCommand(args)
	case "config", "6", "c":
		c.handleConfigCommand(args)
	case "clear", "cls":
		c.render(func(w io.Writer) {
			clearScreen(w)
			c.showMenu(w)
		})
	case "history":
		c.render(c.showCommandHistory)
	case "exit", "quit", "q":
		c.render(func(w io.Writer) { fmt.Fprintln(w, "Goodbye") })
		return false
	default:
		c.render(func(w io.Writer) {
			fmt.Fprintf(w, "%s: Unknown command: %s\n", colorRed("Error"), parts[0])
			fmt.Fprintln(w, "Type 'help' to see available commands")
		})
	}
	return true
}

// parseCommandWithQuotes splits a line on spaces, keeping quoted arguments whole
func parseCommandWithQuotes(command string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false

	for _, r := range command {
		switch {
		case r == '"' || r == '\'':
			inQuotes = !inQuotes
		case r == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

// showDashboard runs a fresh pass unless the live view already keeps the
// snapshot current
func (c *CLI) showDashboard() {
	var snapshot model.Snapshot
	if c.monitor.Running() {
		snapshot, _ = c.storage.Snapshot()
	} else {
		snapshot = c.monitor.RunOnce(c.ctx)
	}

	c.render(func(w io.Writer) { c.writeDashboard(w, snapshot) })
}

// startLive turns the live view on before starting the monitor so the
// immediate pass is drawn
func (c *CLI) startLive() {
	if c.live.Swap(true) && c.monitor.Running() {
		c.render(func(w io.Writer) { fmt.Fprintln(w, "Live view is already running") })
		return
	}

	if err := c.monitor.Start(c.ctx); err != nil {
		c.live.Store(false)
		c.render(func(w io.Writer) {
			if errors.Is(err, monitor.ErrAlreadyRunning) {
				fmt.Fprintln(w, "Monitor is already running in the background")
				return
			}
			fmt.Fprintf(w, "%s: %v\n", colorRed("Error"), err)
		})
	}
}

func (c *CLI) handleStop() {
	if !c.live.Load() {
		c.render(func(w io.Writer) { fmt.Fprintln(w, "Live view is not running") })
		return
	}
	c.stopLive()
	c.render(func(w io.Writer) { fmt.Fprintln(w, "Live view stopped") })
}

// stopLive hides the live view before stopping the monitor so no redraw
// lands after it returns
func (c *CLI) stopLive() {
	if c.live.Swap(false) {
		c.monitor.Stop()
	}
}

// handleEventCommand processes event-related commands
func (c *CLI) handleEventCommand(args []string) {
	limit := defaultEventLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			c.render(func(w io.Writer) {
				fmt.Fprintf(w, "Unknown events subcommand: %s\n", args[0])
				fmt.Fprintln(w, "Usage: events [n]")
			})
			return
		}
		limit = n
	}

	events := c.storage.GetEvents(limit)
	c.render(func(w io.Writer) {
		if len(events) == 0 {
			fmt.Fprintln(w, "No events found")
			return
		}
		displayEventTable(w, events)
	})
}

// handleAlertCommand processes alert-related commands
func (c *CLI) handleAlertCommand(args []string) {
	if len(args) == 0 {
		c.showAlerts(c.storage.GetAlerts(defaultAlertLimit))
		return
	}

	switch args[0] {
	case "severity":
		if len(args) < 2 {
			c.render(func(w io.Writer) { fmt.Fprintln(w, "Usage: alerts severity <level>") })
			return
		}
		severity := model.ParseSeverity(args[1])
		if !severity.Known() {
			c.render(func(w io.Writer) {
				fmt.Fprintf(w, "%s: unknown severity %q (Critical, High, Medium, Low)\n", colorRed("Error"), args[1])
			})
			return
		}
		alerts := c.storage.GetAlertsBySeverity(severity)
		if len(alerts) == 0 {
			c.render(func(w io.Writer) { fmt.Fprintf(w, "No alerts found with severity: %s\n", severity) })
			return
		}
		c.showAlerts(alerts)
	default:
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			c.render(func(w io.Writer) {
				fmt.Fprintf(w, "Unknown alerts subcommand: %s\n", args[0])
				showAlertsHelp(w)
			})
			return
		}
		c.showAlerts(c.storage.GetAlerts(n))
	}
}

func (c *CLI) showAlerts(alerts []model.AlertRecord) {
	c.render(func(w io.Writer) {
		if len(alerts) == 0 {
			fmt.Fprintln(w, "No alerts found")
			return
		}
		displayAlertTable(w, alerts)
	})
}

// handleReportCommand prints the incident report or exports it to a file
func (c *CLI) handleReportCommand(args []string) {
	alerts := c.storage.GetAlerts(0)

	if len(args) == 0 {
		c.render(func(w io.Writer) {
			analyzer.WriteReport(w, alerts, time.Now())
		})
		return
	}

	if args[0] != "export" || len(args) < 2 {
		c.render(func(w io.Writer) { fmt.Fprintln(w, "Usage: report [export <file>]") })
		return
	}

	filename := args[1]
	err := os.WriteFile(filename, []byte(analyzer.Report(alerts, time.Now())), 0644)
	c.render(func(w io.Writer) {
		if err != nil {
			fmt.Fprintf(w, "%s: could not export report: %v\n", colorRed("Error"), err)
			return
		}
		fmt.Fprintf(w, "Report exported to %s\n", filename)
	})
}

// handleConfigCommand processes threshold settings commands
func (c *CLI) handleConfigCommand(args []string) {
	if len(args) == 0 {
		c.render(showConfigHelp)
		return
	}

	switch args[0] {
	case "list":
		c.render(c.showConfig)
	case "set":
		if len(args) != 3 {
			c.render(func(w io.Writer) { fmt.Fprintln(w, "Usage: config set <key> <value>") })
			return
		}
		c.setConfig(args[1], args[2])
	case "reset":
		c.showResult(c.settings.Reset(c.ctx))
	default:
		c.render(showConfigHelp)
	}
}

// setConfig saves one threshold; the next pass picks it up
func (c *CLI) setConfig(key, value string) {
	var patch config.ThresholdsPatch

	switch strings.ToLower(key) {
	case "failed_login_limit", "limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			c.invalidValue(key, value)
			return
		}
		patch.FailedLoginLimit = &n
	case "large_download_threshold", "download":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			c.invalidValue(key, value)
			return
		}
		patch.LargeDownloadThreshold = &f
	case "data_upload_threshold", "upload":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			c.invalidValue(key, value)
			return
		}
		patch.DataUploadThreshold = &f
	default:
		c.render(func(w io.Writer) { fmt.Fprintf(w, "Unknown configuration key: %s\n", key) })
		return
	}

	c.showResult(c.settings.Update(c.ctx, patch))
}

func (c *CLI) invalidValue(key, value string) {
	c.render(func(w io.Writer) {
		fmt.Fprintf(w, "%s: invalid value for %s: %s\n", colorRed("Error"), key, value)
	})
}

func (c *CLI) showResult(result settings.Result) {
	c.render(func(w io.Writer) {
		if result.OK() {
			fmt.Fprintf(w, "%s: %s\n", colorGreen("Success"), result.Message)
			return
		}
		fmt.Fprintf(w, "%s: %s\n", colorRed("Error"), result.Message)
	})
}

// showConfig displays the active thresholds
func (c *CLI) showConfig(w io.Writer) {
	t := c.settings.Current()

	fmt.Fprintln(w, "\nDetection Thresholds:")
	fmt.Fprintln(w, "═════════════════════")
	fmt.Fprintf(w, "Failed Login Limit:       %d\n", t.FailedLoginLimit)
	fmt.Fprintf(w, "Large Download Threshold: %g MB\n", t.LargeDownloadThreshold)
	fmt.Fprintf(w, "Data Upload Threshold:    %g MB\n", t.DataUploadThreshold)
	fmt.Fprintf(w, "Refresh Interval:         %s\n", c.monitor.Interval())
}

// showCommandHistory prints the numbered session history
func (c *CLI) showCommandHistory(w io.Writer) {
	if len(c.cmdHistory) == 0 {
		fmt.Fprintln(w, "No command history yet")
		return
	}

	fmt.Fprintln(w, "\nCommand History:")
	fmt.Fprintln(w, "═════════════════")

	for i, cmd := range c.cmdHistory {
		fmt.Fprintf(w, " %2d: %s\n", i+1, cmd)
	}
}

// showMenu displays the main menu
func (c *CLI) showMenu(w io.Writer) {
	showBanner(w)

	fmt.Fprintf(w, "\n%s\n", colorBold("Main Menu:"))

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator("│")
	table.SetHeaderLine(false)
	table.SetNoWhiteSpace(true)

	table.Append([]string{colorCyan("1") + " or " + colorCyan("d"), "Dashboard", "Run a pass and show stats, events and alerts"})
	table.Append([]string{colorCyan("2") + " or " + colorCyan("e"), "Events", "Classified activity of the latest pass"})
	table.Append([]string{colorCyan("3") + " or " + colorCyan("a"), "Alerts", "Ranked security alerts"})
	table.Append([]string{colorCyan("4") + " or " + colorCyan("l"), "Live", "Refresh the dashboard continuously"})
	table.Append([]string{colorCyan("5") + " or " + colorCyan("r"), "Report", "Incident report"})
	table.Append([]string{colorCyan("6") + " or " + colorCyan("c"), "Settings", "Detection thresholds"})
	table.Append([]string{colorCyan("clear"), "Clear Screen", "Clear terminal display"})
	table.Append([]string{colorCyan("help") + " or " + colorCyan("?"), "Help", "Display help information"})
	table.Append([]string{colorCyan("quit") + " or " + colorCyan("q"), "Quit", "Exit application"})

	table.Render()

	c.showQuickStatus(w)
}

// showQuickStatus shows a condensed status overview for the main menu
func (c *CLI) showQuickStatus(w io.Writer) {
	stats := c.storage.GetStats()
	live := "off"
	if c.live.Load() {
		live = colorGreen("on")
	}

	fmt.Fprintf(w, "\n%s\n", colorBold("Quick Status:"))
	fmt.Fprintf(w, "═════════════════════════════════════\n")
	fmt.Fprintf(w, "Uptime:     %s\n", c.getUptimeString())
	fmt.Fprintf(w, "Live view:  %s\n", live)
	fmt.Fprintf(w, "Events:     %d\n", len(c.storage.GetEvents(0)))
	fmt.Fprintf(w, "Alerts:     %d (%d critical)\n", len(c.storage.GetAlerts(0)), stats.CriticalAlerts)
	fmt.Fprintf(w, "Memory:     %s\n", getMemoryUsage())
}

// writeDashboard renders the stats, event and alert tables of a snapshot
func (c *CLI) writeDashboard(w io.Writer, snapshot model.Snapshot) {
	stats := snapshot.Stats

	fmt.Fprintf(w, "\n%s  %s\n", colorBold("Campus Security Dashboard"),
		snapshot.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w, "═════════════════════════════════════")
	fmt.Fprintf(w, "Total Logins:     %d\n", stats.TotalLogins)
	fmt.Fprintf(w, "Failed Attempts:  %s\n", colorYellow(strconv.Itoa(stats.FailedAttempts)))
	fmt.Fprintf(w, "Data Downloads:   %d\n", stats.DataDownloads)
	fmt.Fprintf(w, "Critical Alerts:  %s\n", colorRed(strconv.Itoa(stats.CriticalAlerts)))

	fmt.Fprintf(w, "\n%s\n", colorBold("Activity:"))
	if len(snapshot.Events) == 0 {
		fmt.Fprintln(w, "No events found")
	} else {
		displayEventTable(w, snapshot.Events)
	}

	fmt.Fprintf(w, "\n%s\n", colorBold("Alerts:"))
	if len(snapshot.Alerts) == 0 {
		fmt.Fprintln(w, "No alerts found")
	} else {
		displayAlertTable(w, snapshot.Alerts)
	}
}

// displayEventTable shows classified events with coloured priorities
func displayEventTable(w io.Writer, events []model.ClassifiedEvent) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "User", "IP", "Event", "Priority", "Detail"})
	table.SetAutoWrapText(false)

	for _, event := range events {
		env := event.Record.Common()
		detail := "-"
		if event.Description != nil {
			detail = *event.Description
		}

		table.Append([]string{
			env.Timestamp,
			env.UserID,
			env.IPAddress,
			string(env.EventType),
			getPriorityColorFunc(event.Priority)(string(event.Priority)),
			detail,
		})
	}
	table.Render()
}

// displayAlertTable shows alerts in a formatted table
func displayAlertTable(w io.Writer, alerts []model.AlertRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "Severity", "Type", "Description"})
	table.SetAutoWrapText(false)

	for _, alert := range alerts {
		table.Append([]string{
			alert.Timestamp,
			getSeverityColorFunc(alert.Severity)(string(alert.Severity)),
			alert.Type,
			alert.Description,
		})
	}
	table.Render()
}

// getSeverityColorFunc returns the appropriate color function for a severity level
func getSeverityColorFunc(severity model.Severity) func(a ...interface{}) string {
	switch severity {
	case model.SeverityCritical:
		return colorRed
	case model.SeverityHigh:
		return colorMagenta
	case model.SeverityMedium:
		return colorYellow
	case model.SeverityLow:
		return colorBlue
	default:
		return colorWhite
	}
}

func getPriorityColorFunc(priority model.Priority) func(a ...interface{}) string {
	switch priority {
	case model.PriorityCritical:
		return colorRed
	case model.PriorityHigh:
		return colorMagenta
	default:
		return colorGreen
	}
}

// getUptimeString formats the system uptime
func (c *CLI) getUptimeString() string {
	uptime := time.Since(c.startTime)
	days := int(uptime.Hours() / 24)
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// getMemoryUsage reports the heap allocation in MB
func getMemoryUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return fmt.Sprintf("%.1f MB", float64(m.Alloc)/1024/1024)
}

// clearScreen resets the terminal with ANSI codes
func clearScreen(w io.Writer) {
	fmt.Fprint(w, "\033[H\033[2J")
}

// showBanner prints the startup banner
func showBanner(w io.Writer) {
	fmt.Fprintln(w, colorCyan(`
   ______                          _____ ____  ______
  / ____/______  ______  ____     / ___// __ \/ ____/
 / /   / ___/ / / / __ \/ __ \    \__ \/ / / / /
/ /___/ /  / /_/ / /_/ / / / /   ___/ / /_/ / /___
\____/_/   \__, /\____/_/ /_/   /____/\____/\____/
          /____/
`))
}

// showHelp lists every command with its aliases
func showHelp(w io.Writer) {
	fmt.Fprintln(w, "\nAvailable Commands:")
	fmt.Fprintln(w, "═════════════════════")
	fmt.Fprintln(w, "  dashboard               - Run a pass and show the dashboard")
	fmt.Fprintln(w, "  events [n]              - Show the first n classified events")
	showAlertsHelp(w)
	fmt.Fprintln(w, "  live                    - Start the live view")
	fmt.Fprintln(w, "  stop                    - Stop the live view")
	fmt.Fprintln(w, "  report                  - Print the incident report")
	fmt.Fprintln(w, "  report export <file>    - Write the incident report to a file")
	showConfigHelp(w)
	fmt.Fprintln(w, "  history                 - Show command history")
	fmt.Fprintln(w, "  clear                   - Clear the screen")
	fmt.Fprintln(w, "  quit                    - Exit")
}

// showAlertsHelp displays help for alert commands
func showAlertsHelp(w io.Writer) {
	fmt.Fprintln(w, "  alerts [n]              - Show the n highest ranked alerts")
	fmt.Fprintln(w, "  alerts severity <level> - Show alerts of one severity")
}

// showConfigHelp displays configuration help
func showConfigHelp(w io.Writer) {
	fmt.Fprintln(w, "  config list             - Show detection thresholds")
	fmt.Fprintln(w, "  config set <k> <v>      - Save a threshold (limit, download, upload)")
	fmt.Fprintln(w, "  config reset            - Restore default thresholds")
}
