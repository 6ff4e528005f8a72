package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"testgen/cmd/testgen/ui"
	"testgen/internal/submission"
	"testgen/internal/watch"
)

var (
	genCode   string
	genFile   string
	genStdin  bool
	genWatch  bool
	genOutput string
)

// generateCmd runs one submission without the form
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate test cases once and print them",
	Long: `Submits inline code and/or a file and prints the generated test cases.

Examples:
  testgen generate --file calc.py
  testgen generate --code "def add(a, b): return a + b"
  cat calc.py | testgen generate --stdin --output test_calc.txt
  testgen generate --file calc.py --watch`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genCode, "code", "", "Inline source code")
	generateCmd.Flags().StringVarP(&genFile, "file", "f", "", "Source file to upload")
	generateCmd.Flags().BoolVar(&genStdin, "stdin", false, "Read inline code from stdin")
	generateCmd.Flags().BoolVarP(&genWatch, "watch", "w", false, "Regenerate whenever --file changes")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "", "Write test cases to a file instead of stdout")
	generateCmd.MarkFlagsMutuallyExclusive("code", "stdin")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if genWatch && genFile == "" {
		return errors.New("--watch requires --file")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := newController()
	defer ctrl.Close()

	code := genCode
	if genStdin {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		code = string(data)
	}
	ctrl.UpdateInlineText(code)

	if genFile != "" {
		if err := ctrl.LoadFile(genFile); err != nil {
			return err
		}
	}

	state := ctrl.Submit(ctx)
	if !genWatch {
		return emit(cmd, state)
	}
	if err := emit(cmd, state); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
	}
	return watchAndRegenerate(ctx, cmd, ctrl)
}

// watchAndRegenerate resubmits after each settled change to --file until
// interrupted. Failures are reported and watching continues.
func watchAndRegenerate(ctx context.Context, cmd *cobra.Command, ctrl *submission.Controller) error {
	w, err := watch.New(genFile, 0, logger)
	if err != nil {
		return err
	}
	defer w.Stop()

	changes, err := w.Start(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", genFile)

	for path := range changes {
		if err := ctrl.LoadFile(path); err != nil {
			logger.Warn("failed to reload watched file", zap.Error(err))
			continue
		}
		if err := emit(cmd, ctrl.Submit(ctx)); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
	}
	return nil
}

// emit writes a settled state: the generated text to --output or stdout, or
// the error message as the returned error.
func emit(cmd *cobra.Command, state submission.State) error {
	if state.ShowsError() {
		return errors.New(state.ErrorMessage)
	}

	if genOutput != "" {
		if err := os.WriteFile(genOutput, []byte(state.ResultText), 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Test cases written to %s\n", genOutput)
		return nil
	}

	out := cmd.OutOrStdout()
	if width, ok := terminalWidth(out); ok {
		fmt.Fprint(out, renderForTerminal(state.ResultText, width))
		return nil
	}
	fmt.Fprintln(out, state.ResultText)
	return nil
}

// terminalWidth reports the width of w when it is a terminal.
func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	return width, true
}

func renderForTerminal(text string, width int) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = text + "\n"
		}
	}()

	style := "light"
	if ui.ThemeByName(cfg.UI.Theme).IsDark {
		style = "dark"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text + "\n"
	}
	rendered, err := renderer.Render(ui.CodeBlock(text))
	if err != nil {
		return text + "\n"
	}
	return rendered
}
