// Package zerolog adapts the zerolog library to the core.Logger contract.
package zerolog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/goterm/term"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the root logger writing colored console output to stdout.
// When jsonFormat is true the zerolog default formatting is kept, which is
// what you want when the output is shipped to a log collector.
func New(level, dateTimeLayout string, colored, jsonFormat bool) (*ZerologAdapter, error) {
	logMode, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	zerolog.SetGlobalLevel(logMode)

	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		NoColor:    !colored,
		TimeFormat: dateTimeLayout,
	}

	if !jsonFormat {
		output.FormatLevel = formatLevel
		output.FormatTimestamp = func(i any) string {
			return formatTimestamp(i, dateTimeLayout)
		}
	}

	logger := log.Output(output)
	return NewAdapter(&logger), nil
}

func formatLevel(i any) string {
	levelStr, ok := i.(string)
	if !ok {
		return term.Whitef("[UNK]")
	}

	switch levelStr {
	case zerolog.LevelDebugValue:
		return term.Cyanf("[DBG]")
	case zerolog.LevelInfoValue:
		return term.Greenf("[INF]")
	case zerolog.LevelWarnValue:
		return term.Yellowf("[WAR]")
	case zerolog.LevelErrorValue:
		return term.Redf("[ERR]")
	case zerolog.LevelFatalValue:
		return term.Redf("[FTL]")
	default:
		return term.Whitef("[%s]", strings.ToUpper(levelStr))
	}
}

func formatTimestamp(i any, timeLayout string) string {
	strTime, ok := i.(string)
	if !ok {
		return term.Cyanf("[%s]", fmt.Sprint(i))
	}

	if ts, err := time.ParseInLocation(time.RFC3339, strTime, time.Local); err == nil {
		strTime = ts.In(time.Local).Format(timeLayout)
	}

	return term.Cyanf("[%s]", strTime)
}
