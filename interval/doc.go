/*Package interval implements interval-union operations in a manner optimized
  for sets of genomic coordinates represented by BED files.
  Overlapping intervals are merged, not tracked separately.  Chromosomes are
  addressed by name, which is how mapped regions name them.
  It assumes every position fits in a PosType.
*/
package interval
