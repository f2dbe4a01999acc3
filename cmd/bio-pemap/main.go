// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/pemap/encoding/fasta"
	"github.com/grailbio/pemap/mapper"
	"github.com/grailbio/pemap/seed"
	"v.io/x/lib/cmdline"
)

func newCmdMap() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "map",
		Short:    "Map read pairs onto chromosomes",
		ArgsName: "reads [reads2]",
		Long: `
With one argument, reads is a FASTA file whose records are concatenated pairs.
With two arguments, they are the R1 and R2 FASTQ files.`,
	}
	opts := mapper.DefaultOpts
	cmd.Flags.StringVar(&opts.OutputPath, "o", "", "Output path; stdout if empty. A .gz suffix selects gzip compression")
	cmd.Flags.StringVar(&opts.ChromPath, "chrom", "", "FASTA file or directory containing the chromosome(s)")
	cmd.Flags.StringVar(&opts.ChromSuffix, "suffix", opts.ChromSuffix, "Suffix of the FASTA files of a -chrom directory")
	cmd.Flags.StringVar(&opts.ChromList, "filenames", "", "File listing the chromosome FASTA files, one per line; overrides -chrom")
	cmd.Flags.StringVar(&opts.PrbPath, "prb", "", "Quality scores of FASTA reads, in prb format")
	cmd.Flags.BoolVar(&opts.FASTQQuality, "fastq-quality", false, "Weigh mismatches by the FASTQ base qualities")
	cmd.Flags.IntVar(&opts.SeedCount, "seeds", 0, "Number of seeds; 0 = mismatches+1")
	cmd.Flags.IntVar(&opts.SeedWeight, "seed-weight", 0, "Positions per seed; 0 = the largest weight that fits")
	cmd.Flags.IntVar(&opts.ReadWidth, "width", 0, "Width of the concatenated FASTA reads; 0 = shortest read")
	cmd.Flags.IntVar(&opts.MateWidth, "mate-width", 0, "Width of one mate; 0 = half the read width, or the shortest FASTQ mate")
	cmd.Flags.IntVar(&opts.MaxMismatches, "mismatches", opts.MaxMismatches, "Maximum number of mismatches summed over both mates")
	cmd.Flags.StringVar(&opts.AmbiguousPath, "ambiguous", "", "File to write the names of ambiguously mapped reads to")
	cmd.Flags.IntVar(&opts.MinSep, "min-sep", opts.MinSep, "Minimum separation between the starts of the mates (exclusive)")
	cmd.Flags.IntVar(&opts.MaxSep, "max-sep", opts.MaxSep, "Maximum separation between the starts of the mates")
	cmd.Flags.IntVar(&opts.MaxMappings, "max-map", opts.MaxMappings, "Number of tied sites stored per pair")
	cmd.Flags.StringVar(&opts.BedPath, "bed", "", "Only report hits overlapping the regions of this BED file")
	cmd.Flags.BoolVar(&opts.BedOneBased, "bed1", false, "Read -bed intervals as one-based [start, end]")
	cmd.Flags.BoolVar(&opts.ExcludeTargets, "exclude-targets", false, "Report the hits that do not overlap the -bed or -region targets")
	cmd.Flags.StringVar(&opts.Region, "region", "", "Only report hits overlapping these comma-separated regions, formatted as <contig>:<1-based first pos>-<last pos>, <contig>:<1-based pos>, or <contig>")
	cmd.Flags.IntVar(&opts.Parallelism, "parallelism", 0, "Number of chromosomes scanned concurrently; 0 = runtime.NumCPU()")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		switch len(argv) {
		case 1:
			opts.ReadsPath = argv[0]
		case 2:
			opts.ReadsPath, opts.Reads2Path = argv[0], argv[1]
		default:
			return fmt.Errorf("map takes one or two read files, but got %v", argv)
		}
		if opts.ChromPath == "" && opts.ChromList == "" {
			return fmt.Errorf("map requires -chrom or -filenames")
		}
		_, err := mapper.Run(vcontext.Background(), opts)
		return err
	})
	return cmd
}

func newCmdSeeds() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "seeds",
		Short: "Print the seed masks used for a mate width",
	}
	width := cmd.Flags.Int("width", 32, "Mate width")
	mismatches := cmd.Flags.Int("mismatches", mapper.DefaultOpts.MaxMismatches, "Maximum number of mismatches")
	count := cmd.Flags.Int("seeds", 0, "Number of seeds; 0 = mismatches+1")
	weight := cmd.Flags.Int("seed-weight", 0, "Positions per seed; 0 = the largest weight that fits")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("seeds takes no arguments, but got %v", argv)
		}
		n := *count
		if n == 0 {
			n = *mismatches + 1
		}
		if err := seed.CheckCoverage(n, *mismatches); err != nil {
			return err
		}
		keyWidth := seed.KeyWidth(*width)
		w := *weight
		if w == 0 {
			w = keyWidth / n
		}
		masks, err := seed.Generate(keyWidth, n, w)
		if err != nil {
			return err
		}
		for _, m := range masks {
			fmt.Fprintln(env.Stdout, m.Pattern(keyWidth))
		}
		return nil
	})
	return cmd
}

func newCmdIndex() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "index",
		Short:    "Write the .fai index of a chromosome FASTA file",
		ArgsName: "fasta",
		Long: `
With an index next to it, map reads a multi-chromosome FASTA file one
chromosome at a time instead of loading it whole.`,
	}
	out := cmd.Flags.String("o", "", "Index path; <fasta>.fai if empty")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("index takes one FASTA file, but got %v", argv)
		}
		path := *out
		if path == "" {
			path = argv[0] + ".fai"
		}
		return writeIndex(vcontext.Background(), argv[0], path)
	})
	return cmd
}

func writeIndex(ctx context.Context, fastaPath, indexPath string) (err error) {
	in, err := file.Open(ctx, fastaPath)
	if err != nil {
		return err
	}
	defer in.Close(ctx) // nolint: errcheck
	out, err := file.Create(ctx, indexPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fasta.GenerateIndex(out.Writer(ctx), in.Reader(ctx))
}

func main() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(&cmdline.Command{
		Name:     "bio-pemap",
		Short:    "Seed-indexed paired-end short-read mapper",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdMap(),
			newCmdSeeds(),
			newCmdIndex(),
		},
	})
}
