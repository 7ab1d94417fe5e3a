package images

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// JPEGQuality is the quality passed to the converter
const JPEGQuality = 85

// Codec produces the stored JPEG of a page image
type Codec interface {
	// Optimize writes a losslessly optimized copy of the JPEG src to dst
	Optimize(ctx context.Context, src, dst string) error
	// Convert re-encodes src as an optimized JPEG at dst
	Convert(ctx context.Context, src, dst string) error
}

// CommandCodec delegates to external commands. OptimizeCmd receives the
// source path as its last argument and writes the result to stdout; when it
// is empty, Optimize copies the file. ConvertCmd is called ImageMagick style.
type CommandCodec struct {
	OptimizeCmd string
	ConvertCmd  string
}

// Optimize runs the optimizer command or copies src to dst
func (c CommandCodec) Optimize(ctx context.Context, src, dst string) error {
	if strings.TrimSpace(c.OptimizeCmd) == "" {
		return copyFile(src, dst)
	}

	args := strings.Fields(c.OptimizeCmd)
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], append(args[1:], src)...)
	cmd.Stdout = out
	cmd.Stderr = &stderr

	slog.Debug("Optimizing image", "cmd", args[0], "src", src, "dst", dst)
	runErr := cmd.Run()
	closeErr := out.Close()
	if runErr != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to optimize %s: %w: %s", src, runErr, strings.TrimSpace(stderr.String()))
	}
	if closeErr != nil {
		return fmt.Errorf("failed to write %s: %w", dst, closeErr)
	}
	return nil
}

// Convert encodes src to a temporary JPEG beside dst, optimizes it into dst
// and removes the temporary file
func (c CommandCodec) Convert(ctx context.Context, src, dst string) error {
	convert := c.ConvertCmd
	if strings.TrimSpace(convert) == "" {
		convert = "convert"
	}
	tmp := dst + "nopt"
	defer os.Remove(tmp)

	args := strings.Fields(convert)
	args = append(args, src, "-quality", fmt.Sprint(JPEGQuality), "-format", "jpg", "jpg:"+tmp)

	slog.Debug("Converting image", "cmd", args[0], "src", src, "dst", dst)
	out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to convert %s: %w: %s", src, err, strings.TrimSpace(string(out)))
	}
	return c.Optimize(ctx, tmp, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
