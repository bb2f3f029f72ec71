// Command boardrag-query answers one rules question in-process and prints the result.
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
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/kailas-cloud/boardrag/internal/app"
	"github.com/kailas-cloud/boardrag/internal/config"
	"github.com/kailas-cloud/boardrag/internal/domain"
	"github.com/kailas-cloud/boardrag/internal/domain/answer"
	logpkg "github.com/kailas-cloud/boardrag/internal/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("boardrag-query", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asJSON := fs.Bool("json", false, "print the structured result as JSON")
	env := fs.String("env", config.GetEnv(), "configuration environment (config/<env>.yaml)")
	verbose := fs.Bool("v", false, "log pipeline details to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, `usage: boardrag-query [-json] [-env local] [-v] "<question>"`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*env)
	if err != nil {
		fmt.Fprintln(stderr, "load config:", err)
		return 1
	}

	level := ""
	if *verbose {
		level = "debug"
	}
	logger, err := logpkg.NewLogger("cli", level)
	if err != nil {
		fmt.Fprintln(stderr, "create logger:", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logpkg.ContextWithLogger(ctx, logger)

	pipeline, err := app.Build(ctx, &cfg, logger)
	if err != nil {
		fmt.Fprintln(stderr, "build pipeline:", err)
		return 1
	}
	defer pipeline.Close()

	resp, err := pipeline.Query.Query(ctx, question)
	if err != nil {
		logger.Debug("query failed", zap.Error(err))
		fmt.Fprintln(stderr, describe(err))
		return 1
	}

	if err := render(stdout, resp, *asJSON); err != nil {
		fmt.Fprintln(stderr, "write output:", err)
		return 1
	}
	return 0
}

type jsonSource struct {
	ID      string  `json:"id"`
	Source  string  `json:"source"`
	Page    int     `json:"page"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type jsonResult struct {
	Answer   string       `json:"answer"`
	Sources  []jsonSource `json:"sources"`
	Question string       `json:"question"`
}

func render(w io.Writer, resp answer.Response, asJSON bool) error {
	if !asJSON {
		_, err := fmt.Fprintf(w, "Response: %s\nSources: [%s]\n", resp.Answer, quoteAll(resp.SourceIDs()))
		return err //nolint:wrapcheck // caller reports
	}

	out := jsonResult{Answer: resp.Answer, Question: resp.Question, Sources: make([]jsonSource, len(resp.Sources))}
	for i, s := range resp.Sources {
		out.Sources[i] = jsonSource{ID: s.ID, Source: s.Source, Page: s.Page, Content: s.Content, Score: s.Score}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out) //nolint:wrapcheck // caller reports
}

func quoteAll(ids []string) string {
	q := make([]string, len(ids))
	for i, id := range ids {
		q[i] = fmt.Sprintf("%q", id)
	}
	return strings.Join(q, ", ")
}

func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrIndexUnavailable):
		return "index unavailable: populate the database first (" + err.Error() + ")"
	case errors.Is(err, domain.ErrCompletion):
		return "language model failed: " + err.Error()
	case errors.Is(err, domain.ErrInvalidQuery):
		return "invalid question: " + err.Error()
	default:
		return "error: " + err.Error()
	}
}
