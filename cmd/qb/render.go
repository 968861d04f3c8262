package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/zulandar/querybar/internal/config"
	"github.com/zulandar/querybar/internal/querylog"
	"golang.org/x/term"
)

var (
	styleHeader = lipgloss.NewStyle().Bold(true)
	styleTime   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleMethod = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styleMem    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleSlow   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

type renderOpts struct {
	outer     string
	inner     string
	html      bool
	editorURL string
	slowMs    float64
}

func newRenderCmd() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Parse delimited query log lines and print them",
		Long: "Reads one delimited query log message per line from file (or stdin) and prints\n" +
			"the parsed table, or the panel HTML with --html.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer f.Close()
				in = f
			}
			return runRender(cmd, in, opts)
		},
	}

	cmd.Flags().StringVar(&opts.outer, "outer", "", "outer (field) delimiter")
	cmd.Flags().StringVar(&opts.inner, "inner", "", "inner (key/value) delimiter")
	cmd.Flags().BoolVar(&opts.html, "html", false, "print the panel HTML instead of a table")
	cmd.Flags().StringVar(&opts.editorURL, "editor-url", "", "editor link template for --html")
	cmd.Flags().Float64Var(&opts.slowMs, "slow", 200, "highlight queries slower than this many ms")
	return cmd
}

func runRender(cmd *cobra.Command, in io.Reader, opts renderOpts) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format, editorURL, err := renderFormat(cfg, opts)
	if err != nil {
		return err
	}

	entries, err := readEntries(in)
	if err != nil {
		return err
	}
	rows, err := querylog.BuildRows(format, entries)
	if err != nil {
		return err
	}
	total, err := querylog.TotalTime(format, entries)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.html {
		html, err := querylog.RenderPanel(querylog.PanelData{
			Count:     len(rows),
			TotalMs:   total,
			Rows:      rows,
			EditorURL: editorURL,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, html)
		return nil
	}

	printRows(out, rows, total, opts.slowMs, isTerminal(out))
	return nil
}

// renderFormat takes the delimited format and editor URL from cfg, then
// applies flag overrides.
func renderFormat(cfg *config.Config, opts renderOpts) (querylog.Format, string, error) {
	format := cfg.Format()
	editorURL := opts.editorURL
	if editorURL == "" {
		editorURL = cfg.EditorURL
	}
	if opts.outer != "" {
		format.Outer = opts.outer
	}
	if opts.inner != "" {
		format.Inner = opts.inner
	}
	if err := format.Validate(); err != nil {
		return querylog.Format{}, "", err
	}
	return format, editorURL, nil
}

// readEntries turns each non-blank line into an entry without a source.
func readEntries(in io.Reader) ([]querylog.Entry, error) {
	var entries []querylog.Entry
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, querylog.Entry{Severity: querylog.SeverityNone, Message: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return entries, nil
}

func printRows(w io.Writer, rows []querylog.Row, totalMs, slowMs float64, color bool) {
	paint := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	fmt.Fprintln(w, paint(styleHeader, fmt.Sprintf("Queries: %d, time: %s ms", len(rows), querylog.FormatMs(totalMs))))
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "%-10s %-8s %-8s %s\n", "TIME MS", "MEM MB", "METHOD", "SQL")
	for _, r := range rows {
		timeCol := fmt.Sprintf("%-10s", querylog.FormatNumber(r.TimeMs))
		if slowMs > 0 && r.TimeMs >= slowMs {
			timeCol = paint(styleSlow, timeCol)
		} else {
			timeCol = paint(styleTime, timeCol)
		}
		fmt.Fprintf(w, "%s %s %s %s\n",
			timeCol,
			paint(styleMem, fmt.Sprintf("%-8s", querylog.FormatNumber(r.Mem))),
			paint(styleMethod, fmt.Sprintf("%-8s", r.Method)),
			oneLine(r.SQL),
		)
	}
}

// oneLine collapses whitespace so multi-line SQL stays on its row.
func oneLine(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
