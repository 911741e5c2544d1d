// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	"github.com/xyproto/env/v2"

	"minicc/internal/emit"
	"minicc/internal/errors"
	"minicc/internal/ir"
	"minicc/internal/parser"
	"minicc/internal/semantic"
)

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		fmt.Println("Usage: minicc <input> [<output.ll>]")
		os.Exit(1)
	}

	verbosity := 0
	if env.Bool("MINICC_VERBOSE") {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)
	if env.Bool("NO_COLOR") {
		color.NoColor = true
	}

	startTime := time.Now()
	path := os.Args[1]

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		os.Exit(1)
	}

	program, err := parser.ParseSource(path, string(source))
	if err != nil {
		reportParseError(path, string(source), err)
		fail(startTime)
	}

	analyzer := semantic.NewAnalyzer()
	analyzer.Analyze(program)
	if semanticErrors := analyzer.GetErrors(); len(semanticErrors) > 0 {
		reporter := errors.NewErrorReporter(path, string(source))
		for _, semErr := range semanticErrors {
			fmt.Print(reporter.FormatError(semErr))
		}
		fail(startTime)
	}

	module, err := ir.BuildProgram(program)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fail(startTime)
	}

	if err := ir.Optimize(module); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fail(startTime)
	}

	output, err := emit.Emit(module)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fail(startTime)
	}

	if len(os.Args) == 3 {
		if err := os.WriteFile(os.Args[2], []byte(output), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write output: %v\n", err)
			fail(startTime)
		}
	} else {
		fmt.Print(output)
	}

	color.Green("Successfully compiled %s in %s", path, formatDuration(time.Since(startTime)))
}

func fail(startTime time.Time) {
	color.Red("Compilation failed after %s", formatDuration(time.Since(startTime)))
	os.Exit(1)
}

func reportParseError(path, source string, err error) {
	pe, ok := err.(parser.ParseError)
	if !ok {
		color.Red("Unexpected error: %s", err)
		return
	}
	reporter := errors.NewErrorReporter(path, source)
	fmt.Print(reporter.FormatError(errors.CompilerError{
		Level:    errors.Error,
		Code:     errors.ErrorSyntax,
		Message:  pe.Message,
		Position: pe.Position,
		Length:   1,
	}))
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
