// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package biosimd provides table-driven implementations of the .fa/.fq byte
// array operations that sit in the mapper's inner loops: sequence cleaning,
// reverse-complementing, and counting of non-ACGT bases.
package biosimd
