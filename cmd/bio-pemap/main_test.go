package main

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"v.io/x/lib/cmdline"
)

func TestSeeds(t *testing.T) {
	var stdout, stderr bytes.Buffer
	env := &cmdline.Env{Stdout: &stdout, Stderr: &stderr}
	assert.NoError(t, cmdline.ParseAndRun(newCmdSeeds(), env, []string{"-width", "12", "-mismatches", "2", "-seed-weight", "2"}))
	expect.EQ(t, stdout.String(), "110000000000\n000011000000\n000000001100\n")

	stdout.Reset()
	expect.NotNil(t, cmdline.ParseAndRun(newCmdSeeds(), env, []string{"-width", "12", "-mismatches", "2", "-seeds", "2"}))
}

func TestMapArgs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	env := &cmdline.Env{Stdout: &stdout, Stderr: &stderr}
	expect.NotNil(t, cmdline.ParseAndRun(newCmdMap(), env, []string{"reads.fa"}))
	expect.NotNil(t, cmdline.ParseAndRun(newCmdMap(), env, []string{"-chrom", "chr.fa"}))
}

func TestIndex(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	genome := filepath.Join(dir, "genome.fa")
	assert.NoError(t, ioutil.WriteFile(genome, []byte(">chr1\nACGT\nAC\n>chr2\nGGG\n"), 0644))

	var stdout, stderr bytes.Buffer
	env := &cmdline.Env{Stdout: &stdout, Stderr: &stderr}
	assert.NoError(t, cmdline.ParseAndRun(newCmdIndex(), env, []string{genome}))
	data, err := ioutil.ReadFile(genome + ".fai")
	assert.NoError(t, err)
	expect.EQ(t, string(data), "chr1\t6\t6\t4\t5\nchr2\t3\t20\t3\t4\n")

	expect.NotNil(t, cmdline.ParseAndRun(newCmdIndex(), env, []string{filepath.Join(dir, "missing.fa")}))
}
