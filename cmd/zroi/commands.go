package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gocloud.dev/blob"
	"golang.org/x/sync/errgroup"

	zarr "github.com/TuSKan/zarr-roi"
	"github.com/TuSKan/zarr-roi/chunked"
	"github.com/TuSKan/zarr-roi/config"
	"github.com/TuSKan/zarr-roi/region"
)

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "zroi",
		Short:         "Region-of-interest reads over Zarr arrays",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
			zarr.SetLogger(logger)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log chunk-level debug output")

	root.AddCommand(newInfoCmd(), newPlanCmd(), newReadCmd())
	return root
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <url>",
		Short: "Print the metadata of an array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := zarr.NewReader(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer r.Close()
			printInfo(cmd.OutOrStdout(), r.Metadata())
			return nil
		},
	}
}

func printInfo(w io.Writer, meta *zarr.Metadata) {
	compressor := "none"
	if meta.Compressor != nil {
		compressor = meta.Compressor.ID
	}
	fmt.Fprintf(w, "shape:      %v\n", meta.Shape)
	fmt.Fprintf(w, "chunks:     %v\n", meta.Chunks)
	fmt.Fprintf(w, "dtype:      %s\n", meta.DType)
	fmt.Fprintf(w, "compressor: %s\n", compressor)
	fmt.Fprintf(w, "fill_value: %s\n", meta.FillValue)
}

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <pipeline.yaml>",
		Short: "Print the collapsed crop and bin of a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.Load(args[0])
			if err != nil {
				return err
			}
			ds, err := zarr.NewDataset(cmd.Context(), p.Source)
			if err != nil {
				return err
			}
			defer ds.Close()

			plan, err := ds.Plan(p.Chain())
			if err != nil {
				return err
			}
			box := make([]region.Range, len(plan.Region))
			for i, r := range plan.Region {
				box[i] = r.Bounds()
			}
			copies := 1
			if chunks, ok := ds.Reader().ChunkShape(); ok {
				cp, err := chunked.NewPlan(plan.Shape, chunks, box)
				if err != nil {
					return err
				}
				copies = cp.Len()
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "chain:  %s\n", p.Chain())
			fmt.Fprintf(w, "region: %s\n", region.Format(plan.Region))
			fmt.Fprintf(w, "bin:    %d\n", plan.Bin)
			fmt.Fprintf(w, "shape:  %v\n", plan.OutputShape())
			fmt.Fprintf(w, "chunks: %d\n", copies)
			return nil
		},
	}
}

func newReadCmd() *cobra.Command {
	var (
		out  string
		jobs int
	)
	cmd := &cobra.Command{
		Use:   "read <pipeline.yaml>...",
		Short: "Run pipelines and store each result as a Zarr array",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobs < 1 {
				return fmt.Errorf("--jobs must be at least 1, got %d", jobs)
			}
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(jobs)
			written := make([]string, len(args))
			for i, path := range args {
				g.Go(func() error {
					var err error
					written[i], err = runPipeline(ctx, out, path)
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			for _, line := range written {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "URL of the bucket receiving the results")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "number of pipelines run at once")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// runPipeline stores the result of the pipeline at path as the array named
// after the pipeline file in the bucket at out.
func runPipeline(ctx context.Context, out, path string) (string, error) {
	p, err := config.Load(path)
	if err != nil {
		return "", err
	}
	red, err := p.ReductionKind()
	if err != nil {
		return "", err
	}
	ds, err := zarr.NewDataset(ctx, p.Source)
	if err != nil {
		return "", err
	}
	defer ds.Close()

	data, shape, err := ds.ReadBytes(ctx, p.Chain(), red)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	bucket, err := blob.OpenBucket(ctx, out)
	if err != nil {
		return "", fmt.Errorf("failed to open output bucket: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	// PrefixedBucket takes over bucket.
	dst := blob.PrefixedBucket(bucket, name+"/")
	defer dst.Close()

	src := ds.Reader().Metadata()
	chunks := make([]int, len(shape))
	for i, n := range shape {
		chunks[i] = max(n, 1)
	}
	w, err := zarr.NewWriter(ctx, dst, zarr.Metadata{
		Shape:      shape,
		Chunks:     chunks,
		DType:      src.DType,
		Compressor: src.Compressor,
		FillValue:  src.FillValue,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	defer w.Close()
	if err := w.WriteArray(ctx, data); err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	slog.Debug("pipeline written", "pipeline", path, "array", name, "shape", shape)
	return fmt.Sprintf("%s -> %s %v", path, name, shape), nil
}
