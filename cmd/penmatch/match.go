package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"penmatch/internal/match/transport"
	"penmatch/internal/platform/logger"
	"penmatch/pkg/requestcontext"
)

var matchCmd = &cobra.Command{
	Use:   "match [request.json]",
	Short: "Match one student record against the configured registry",
	Long: `Read a match request as JSON from the given file, or from stdin when no file
is given, run it through the engine and print the response.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMatch,
}

// errMatchFailed makes the process exit non-zero after the error envelope is
// printed.
var errMatchFailed = errors.New("match request failed")

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, "text")

	payload, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	ctx := requestcontext.WithClientID(cmd.Context(), "cli")
	a, err := buildApp(ctx, cfg, log, prometheus.NewRegistry(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	processor, err := transport.NewProcessor(a.service, transport.WithLogger(log))
	if err != nil {
		return err
	}
	reply := processor.Process(ctx, payload)

	var out bytes.Buffer
	if err := json.Indent(&out, reply.Body, "", "  "); err != nil {
		return fmt.Errorf("format response: %w", err)
	}
	out.WriteByte('\n')
	if _, err := out.WriteTo(cmd.OutOrStdout()); err != nil {
		return err
	}
	if reply.Failed {
		return errMatchFailed
	}
	return nil
}

func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return data, nil
}
