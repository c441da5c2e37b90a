package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kundliinsight/kundli/internal/output"
)

var extensions = map[output.Format]string{
	output.FormatJSON:     "json",
	output.FormatMarkdown: "md",
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// sanitizeFilename lowercases value and keeps it to [a-z0-9._-].
func sanitizeFilename(value string) string {
	name := unsafeFilenameChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	if name = strings.Trim(name, "-."); name == "" {
		return "output"
	}
	return name
}

// openOutput returns the command's stdout for "" or "-", otherwise a new file
// at path (parent directories are created). The returned close is never nil.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path) // #nosec G304 -- path comes from the operator's --out flag
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// makeOutDir creates dir and returns its absolute form.
func makeOutDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", errors.New("output directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs, nil
	}
	return dir, nil
}

// addListingFlags registers the output flags shared by the list commands.
func addListingFlags(cmd *cobra.Command) {
	cmd.Flags().String("output-format", string(output.FormatTable), "output format: table, json, markdown")
	cmd.Flags().String("out", "", "write output to a file (default stdout)")
	cmd.Flags().String("out-dir", "", "write output into this directory, named after the listing")
}

// listingTarget resolves --out and --out-dir into a single path; "" means stdout.
func listingTarget(cmd *cobra.Command, name string, format output.Format) (string, error) {
	outPath, _ := cmd.Flags().GetString("out")
	outDir, _ := cmd.Flags().GetString("out-dir")
	outPath, outDir = strings.TrimSpace(outPath), strings.TrimSpace(outDir)

	switch {
	case outPath != "" && outDir != "":
		return "", errors.New("--out and --out-dir are mutually exclusive")
	case outDir == "":
		return outPath, nil
	}

	dir, err := makeOutDir(outDir)
	if err != nil {
		return "", err
	}
	ext, ok := extensions[format]
	if !ok {
		ext = "txt"
	}
	return filepath.Join(dir, sanitizeFilename(name)+"."+ext), nil
}

// writeListing renders listing with the command's output flags.
func writeListing(cmd *cobra.Command, name string, listing output.Listing) error {
	formatFlag, _ := cmd.Flags().GetString("output-format")
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	target, err := listingTarget(cmd, name, format)
	if err != nil {
		return err
	}
	rendered, err := output.Render(format, listing)
	if err != nil {
		return err
	}

	w, closeOut, err := openOutput(cmd, target)
	if err != nil {
		return err
	}
	defer func() { _ = closeOut() }()

	if _, err := fmt.Fprintln(w, strings.TrimRight(rendered, "\n")); err != nil {
		return err
	}
	if target != "" && target != "-" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", target)
	}
	return nil
}
