// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

/*
bio-pemap maps paired-end short reads onto reference chromosomes with
spaced seeds.

Reads are either a FASTA file of concatenated pairs (the first half of each
record is the left mate) with an optional .prb quality file, or a pair of
R1/R2 FASTQ files.  The chromosomes are a FASTA file, a directory of FASTA
files, or a file listing FASTA files.  A single FASTA file with a .fai
index next to it (see "bio-pemap index") is read one chromosome at a time.

Uniquely mapped pairs are written as one region per read name:

  chrom  start  end  name  score  strand

where [start, end) spans both mates.  Reads that map equally well to several
sites can be listed with -ambiguous.

Sample usage:
bio-pemap map \
    -chrom hg19/ \
    -mismatches 2 \
    -o hits.tsv \
    reads.fa

bio-pemap index hg19.fa

bio-pemap seeds -width 25 -mismatches 2
*/
package main
