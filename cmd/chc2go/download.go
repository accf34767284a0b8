package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Source URLs for the Gene Ontology and the human GO annotations.
const (
	goOBOURL  = "http://purl.obolibrary.org/obo/go.obo"
	goaGAFURL = "http://current.geneontology.org/annotations/goa_human.gaf.gz"
)

// remoteFile is one file fetched by the download command.
type remoteFile struct {
	url  string
	name string
}

var downloadFiles = []remoteFile{
	{url: goOBOURL, name: defaultOBO},
	{url: goaGAFURL, name: defaultGAF},
}

func newDownloadCmd() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the GO ontology and human GO annotations",
		Long: `Download go.obo and goa_human.gaf.gz into the data directory, which is
created if necessary. Existing files are kept unless --overwrite is given.`,
		Example: `  chc2go download
  chc2go download --data-dir /data/go --overwrite`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			destDir := viper.GetString("data-dir")
			if err := os.MkdirAll(destDir, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", destDir, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Downloading GO files to %s\n\n", destDir)

			d := &downloader{
				client:    &http.Client{Timeout: 30 * time.Minute},
				overwrite: overwrite,
				out:       out,
			}
			for _, f := range downloadFiles {
				if err := d.fetch(f.url, filepath.Join(destDir, f.name)); err != nil {
					return fmt.Errorf("download %s: %w", f.name, err)
				}
			}

			fmt.Fprintf(out, "\nDownload complete!\n")
			fmt.Fprintf(out, "To score interactions, run:\n")
			fmt.Fprintf(out, "  chc2go score --data-dir %s interactions.tsv\n", destDir)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&overwrite, "overwrite", "w", false, "overwrite previously downloaded files")
	return cmd
}

// downloader fetches files to disk with progress output.
type downloader struct {
	client    *http.Client
	overwrite bool
	out       io.Writer
}

// fetch downloads url to destPath through a temporary file.
func (d *downloader) fetch(url, destPath string) error {
	if info, err := os.Stat(destPath); err == nil && !d.overwrite {
		fmt.Fprintf(d.out, "  %s already exists (%s), skipping\n",
			filepath.Base(destPath), humanize.IBytes(uint64(info.Size())))
		return nil
	}

	fmt.Fprintf(d.out, "  Downloading %s...\n", filepath.Base(destPath))

	resp, err := d.client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	pw := &progressWriter{
		out:       d.out,
		total:     resp.ContentLength,
		lastPrint: time.Now(),
	}

	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Fprintf(d.out, "    Done: %s\n", humanize.IBytes(uint64(pw.downloaded)))
	return nil
}

// progressWriter prints download progress at most once per second.
type progressWriter struct {
	out        io.Writer
	total      int64
	downloaded int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.downloaded += int64(n)

	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(pw.downloaded) / float64(pw.total) * 100
			fmt.Fprintf(pw.out, "\r    Progress: %s / %s (%.1f%%)  ",
				humanize.IBytes(uint64(pw.downloaded)), humanize.IBytes(uint64(pw.total)), pct)
		} else {
			fmt.Fprintf(pw.out, "\r    Progress: %s  ", humanize.IBytes(uint64(pw.downloaded)))
		}
		pw.lastPrint = time.Now()
	}

	return n, nil
}
