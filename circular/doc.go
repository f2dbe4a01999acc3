// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package circular provides sliding-window data structures which are
// frequently useful when streaming through a chromosome: power-of-two sizing
// and index helpers, and a ring of packed windows addressed by chromosome
// offset.
package circular
