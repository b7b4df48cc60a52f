// Package value defines the scalar values a table cell can hold.
//
// Value is a closed union: Text, Int, Double, BigInt, Decimal, and Web.
// Type switches over Value are exhaustive by construction, so adding a
// kind is a localized change here plus the codec tag table.
//
// This package imports nothing internal. The table package builds on it,
// and the store and script packages use its codec and coercion rules.
//
// Key rules:
//   - nil is the absent value, never a stored one
//   - values are immutable; BigInt and Decimal copy on the way in and out
//   - Compare gives the total order used for cell equality
package value
