package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/awesomeproject/service/internal/config"
	"github.com/awesomeproject/service/internal/storage"
)

type CollectStaticOptions struct {
	Dir    string
	DryRun bool

	iooption.IOStreams
}

var (
	collectStaticLong = templates.LongDesc(`
		Upload every file under a directory to the static storage profile.
		Existing objects with the same name are replaced.`)

	collectStaticExample = templates.Examples(`
		# Upload ./static
		manage collectstatic

		# Show what would be uploaded from ./web/dist
		manage collectstatic --dir ./web/dist --dry-run`)
)

func NewCollectStaticOptions(streams iooption.IOStreams) *CollectStaticOptions {
	return &CollectStaticOptions{
		IOStreams: streams,
	}
}

func NewCollectStaticCommand(o *CollectStaticOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "collectstatic",
		DisableFlagsInUseLine: true,
		Short:                 "Upload static assets to blob storage",
		Long:                  collectStaticLong,
		Example:               collectStaticExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			return o.Run()
		},
	}

	cmd.Flags().StringVarP(&o.Dir, "dir", "d", "./static", "Directory containing static assets")
	cmd.Flags().BoolVar(&o.DryRun, "dry-run", false, "List files without uploading")

	return cmd
}

func (o *CollectStaticOptions) Complete(cmd *cobra.Command, args []string) error {
	abs, err := filepath.Abs(o.Dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", o.Dir, err)
	}
	o.Dir = abs
	return nil
}

func (o *CollectStaticOptions) Validate() error {
	info, err := os.Stat(o.Dir)
	if err != nil {
		return fmt.Errorf("static directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", o.Dir)
	}
	return nil
}

func (o *CollectStaticOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var static storage.Storage
	if !o.DryRun {
		cfg := config.Load()
		backend, err := storage.NewBackend(ctx, cfg)
		if err != nil {
			return err
		}
		stores, err := storage.Open(ctx, backend, cfg.StorageBucketPrefix)
		if err != nil {
			return err
		}
		static = stores[storage.Static().Name]
	}

	count := 0
	err := filepath.WalkDir(o.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel, err := filepath.Rel(o.Dir, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		if o.DryRun {
			fmt.Fprintf(o.Out, "would upload %s\n", name)
			count++
			return nil
		}
		if err := uploadFile(ctx, static, p, name); err != nil {
			return err
		}
		fmt.Fprintf(o.Out, "uploaded %s\n", name)
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("collectstatic: %w", err)
	}

	fmt.Fprintf(o.Out, "%d static files processed.\n", count)
	return nil
}

func uploadFile(ctx context.Context, s storage.Storage, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.Save(ctx, name, f, info.Size(), contentType)
	return err
}
