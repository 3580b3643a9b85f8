// Package ir provides the core value types shared by every fracmul package.
//
// This package contains type definitions and their rendering only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Prime-product integers are *big.Int and are never mutated once built
//   - NO float types anywhere; all arithmetic is exact
//   - Multisets keep duplicates; order carries no meaning
//   - All JSON tags use snake_case
package ir
