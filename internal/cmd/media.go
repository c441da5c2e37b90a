package cmd

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kundliinsight/kundli/internal/media"
	"github.com/kundliinsight/kundli/internal/observability"
)

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Work with uploaded images",
}

var mediaThumbCmd = &cobra.Command{
	Use:   "thumb",
	Short: "Generate thumbnails for uploaded images",
	Long: `Generate smaller copies of uploaded images, e.g. for post listings.
Reads the configured uploads directory unless --in-dir is given.`,
	RunE: runMediaThumb,
}

func init() {
	rootCmd.AddCommand(mediaCmd)
	mediaCmd.AddCommand(mediaThumbCmd)

	mediaThumbCmd.Flags().String("in-dir", "", "input directory (defaults to uploads.dir)")
	mediaThumbCmd.Flags().String("out-dir", "", "output directory for thumbnails (defaults to in-dir)")
	mediaThumbCmd.Flags().Int("max-size", 320, "max thumbnail dimension (64-1024)")
	mediaThumbCmd.Flags().String("format", media.FormatJPEG, "thumbnail format: jpeg or png")
	mediaThumbCmd.Flags().Int("jpeg-quality", media.DefaultJPEGQuality, "JPEG quality (1-100)")
	mediaThumbCmd.Flags().String("suffix", "thumb", "filename suffix (e.g. 'thumb' -> name.thumb.jpg)")
}

func runMediaThumb(cmd *cobra.Command, _ []string) error {
	inDir, _ := cmd.Flags().GetString("in-dir")
	outDir, _ := cmd.Flags().GetString("out-dir")
	maxSize, _ := cmd.Flags().GetInt("max-size")
	format, _ := cmd.Flags().GetString("format")
	jpegQuality, _ := cmd.Flags().GetInt("jpeg-quality")
	suffix, _ := cmd.Flags().GetString("suffix")

	inDir = strings.TrimSpace(inDir)
	outDir = strings.TrimSpace(outDir)
	format = strings.ToLower(strings.TrimSpace(format))
	suffix = strings.TrimSpace(suffix)

	if inDir == "" {
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}
		inDir = cfg.Uploads.Dir
	}
	if outDir == "" {
		outDir = inDir
	}
	if maxSize < 64 || maxSize > 1024 {
		return errors.New("--max-size must be between 64 and 1024")
	}
	if format == "jpg" {
		format = media.FormatJPEG
	}
	if format != media.FormatJPEG && format != media.FormatPNG {
		return fmt.Errorf("--format must be jpeg or png, got %q", format)
	}
	if suffix == "" {
		suffix = "thumb"
	}

	absIn, err := filepath.Abs(inDir)
	if err != nil {
		absIn = inDir
	}
	absOut, err := makeOutDir(outDir)
	if err != nil {
		return err
	}
	if err := checkWritableDir(absOut); err != nil {
		return err
	}

	entries, err := os.ReadDir(absIn)
	if err != nil {
		return err
	}

	written := 0
	for _, entry := range entries {
		if entry.IsDir() || !isThumbSource(entry.Name(), suffix) {
			continue
		}
		inPath := filepath.Join(absIn, entry.Name())
		outPath := thumbnailPath(absOut, entry.Name(), suffix, format)
		if err := writeThumbnail(inPath, outPath, maxSize, format, jpegQuality); err != nil {
			return fmt.Errorf("thumbnail %s: %w", entry.Name(), err)
		}
		written++
	}

	observability.CLILogger.Info("Thumbnails written",
		zap.String("dir", absOut),
		zap.Int("count", written),
	)
	return nil
}

// isThumbSource reports whether name is an image that is not itself a thumbnail.
func isThumbSource(name, suffix string) bool {
	lower := strings.ToLower(name)
	ext := filepath.Ext(lower)
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
	default:
		return false
	}
	return !strings.HasSuffix(strings.TrimSuffix(lower, ext), "."+strings.ToLower(suffix))
}

func thumbnailPath(outDir, filename, suffix, format string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	ext := "jpg"
	if format == media.FormatPNG {
		ext = "png"
	}
	return filepath.Join(outDir, fmt.Sprintf("%s.%s.%s", base, suffix, ext))
}

func writeThumbnail(inPath, outPath string, maxSize int, format string, jpegQuality int) error {
	inFile, err := os.Open(inPath) // #nosec G304 -- files listed from the chosen directory
	if err != nil {
		return err
	}
	defer inFile.Close() // nolint:errcheck

	srcImg, _, err := image.Decode(inFile)
	if err != nil {
		return err
	}
	if b := srcImg.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return media.ErrInvalidDimensions
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := media.Encode(outFile, media.Scale(srcImg, maxSize), format, jpegQuality); err != nil {
		_ = outFile.Close()
		return err
	}
	return outFile.Close()
}
