package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/qrshare/qrshare/internal/client/client"
	"github.com/qrshare/qrshare/internal/filex"
	"github.com/qrshare/qrshare/internal/rpc"
	"github.com/skip2/go-qrcode"
)

func (a *App) upload(ctx context.Context, args []string) error {
	fs := a.newFlagSet("upload")
	protect := fs.Bool("p", false, "protect the file with a password")
	contentType := fs.String("type", "", "MIME type (guessed from the extension by default)")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: upload <file> [-p] [-type mime]")
	}
	path := pos[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	req := &rpc.UploadRequest{
		Filename:    filepath.Base(path),
		ContentType: *contentType,
		Data:        data,
	}
	if req.ContentType == "" {
		req.ContentType = mime.TypeByExtension(filepath.Ext(path))
	}
	if *protect {
		if req.Password, err = GetNewPassword(a.errOut); err != nil {
			return err
		}
	}

	resp, err := a.api.Upload(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "id:      %s\n", resp.ID)
	fmt.Fprintf(a.out, "link:    %s\n", resp.Link)
	fmt.Fprintf(a.out, "expires: %s\n", resp.ExpiresAt.Local().Format(time.RFC1123))
	if resp.Key != "" {
		fmt.Fprintf(a.out, "key:     %s\n", resp.Key)
	}

	if q, err := qrcode.New(resp.Link, qrcode.Low); err == nil {
		fmt.Fprint(a.out, q.ToSmallString(false))
	}
	return nil
}

func (a *App) download(ctx context.Context, args []string) error {
	fs := a.newFlagSet("download")
	output := fs.String("o", "", `output file; "-" for stdout (default: the original file name)`)
	askPassword := fs.Bool("p", false, "prompt for the file's password")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: download <link|id> [-o file] [-p]")
	}

	ref, err := client.ParseRef(pos[0])
	if err != nil {
		return err
	}

	var password string
	if *askPassword {
		if password, err = GetPassword(a.errOut, "Enter password: "); err != nil {
			return err
		}
	}

	resp, err := a.api.Download(ctx, ref, password)
	if err != nil {
		return err
	}

	if *output == "-" {
		_, err := a.out.Write(resp.Data)
		return err
	}

	path := *output
	if path == "" {
		path = localName(resp.Filename, ref.ID)
	}
	if err := filex.WriteFileAtomic(path, resp.Data, 0o600); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "saved %d bytes to %s (download #%d)\n", len(resp.Data), path, resp.DownloadCount)
	return nil
}

// localName keeps only the base of a sender-chosen name so it cannot
// escape the working directory.
func localName(name, fallback string) string {
	base := filepath.Base(filepath.Clean("/" + filepath.FromSlash(name)))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return fallback
	}
	return base
}

func (a *App) stats(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: stats <link|id>")
	}
	ref, err := client.ParseRef(args[0])
	if err != nil {
		return err
	}

	n, err := a.api.Stats(ctx, ref.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "downloads: %d\n", n)
	return nil
}

func (a *App) revoke(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: revoke <link>")
	}
	ref, err := client.ParseRef(args[0])
	if err != nil {
		return err
	}

	if err := a.api.Revoke(ctx, ref); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "revoked %s\n", ref.ID)
	return nil
}

func (a *App) ping(ctx context.Context) error {
	if err := a.api.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "OK")
	return nil
}
