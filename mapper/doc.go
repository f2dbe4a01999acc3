// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

/*
Package mapper maps fixed-width paired-end reads onto reference chromosomes.

A run proceeds in stages, one per seed mask.  Each stage indexes the right
mates of the read pairs that are still in play, then scans every chromosome,
forward and reverse complement, for windows whose seed matches.  Candidates
are verified against both mates within the allowed mate separation, and the
best sites of each pair are tracked across chromosomes and stages.  Pairs
found ambiguous at score zero leave the working set between stages, since no
later site can make them unique.  At the end, ambiguous pairs are reported by
name and every uniquely mapped pair becomes one hit region per read name.

Reads come either from a FASTA file whose records are concatenated pairs
(optionally with a .prb quality file), or from a pair of R1/R2 FASTQ files.
*/
package mapper
