package cmd

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/parleydev/parley/internal/display"
)

func newBackupCmd(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive stored chats into a zip file",
		Run: func(cmd *cobra.Command, args []string) {
			prof, err := app.loadProfile()
			if err != nil {
				display.ShowError(err.Error())
				os.Exit(1)
			}
			if output == "" {
				output = fmt.Sprintf("parley-chats-%s.zip", time.Now().Format("20060102-150405"))
			}
			count, err := backupChats(prof.ChatsDir, output)
			if err != nil {
				display.ShowError(err.Error())
				os.Exit(1)
			}
			fmt.Printf("Archived %d chat(s) to %s\n", count, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output archive path (default parley-chats-<stamp>.zip)")
	return cmd
}

// backupChats zips every chat file under dir into a new archive at dest.
func backupChats(dir, dest string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read chats directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return 0, fmt.Errorf("no stored chats under %s", dir)
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, name := range names {
		if err := addToArchive(zw, filepath.Join(dir, name), name); err != nil {
			zw.Close()
			return 0, err
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return len(names), nil
}

// addToArchive copies one file into the archive, keeping its modtime.
func addToArchive(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", name, err)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to describe %s: %w", name, err)
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
