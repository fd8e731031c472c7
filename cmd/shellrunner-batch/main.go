// Command shellrunner-batch runs a newline-delimited list of shell
// commands through the foreground executor and reports progress as it
// goes — the same "iterate a bounded range, log after each item"
// structure as the teacher's bulk-delete command, generalized from
// deleting a channel ID range to executing a batch of shell commands.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shellrunner/shellrunner-server/internal/env"
	"github.com/shellrunner/shellrunner-server/internal/foreground"
)

func main() {
	file := flag.String("file", "", "path to a newline-delimited list of shell commands")
	directory := flag.String("directory", "", "absolute working directory for every command")
	flag.Parse()

	if *file == "" || *directory == "" {
		fmt.Println("Usage: ./shellrunner-batch -file=<commands.txt> -directory=<absolute-path>")
		os.Exit(1)
	}

	log := buildLogger()
	log = log.Named("main")

	cfg := env.Load()
	fg := foreground.New(log, cfg)

	commands, err := readCommands(*file)
	if err != nil {
		log.Fatal("failed to read command file", zap.Error(err))
	}

	total := len(commands)
	for idx, raw := range commands {
		iterStart := time.Now()

		resp, err := fg.Execute(context.Background(), foreground.Params{
			Argv:      strings.Fields(raw),
			Directory: *directory,
		})
		if err != nil {
			log.Fatal("command rejected", zap.String("command", raw), zap.Error(err))
		}

		log.Info("command executed",
			zap.String("command", raw),
			zap.Int("status", resp.Status),
			zap.Int("index", idx+1),
			zap.Int("total", total),
			zap.Duration("took", time.Since(iterStart)),
		)
	}
}

func readCommands(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

func buildLogger() *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	logConfig.Level.SetLevel(zap.DebugLevel)
	return zap.Must(logConfig.Build())
}
