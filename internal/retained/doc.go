// Package retained persists the armed wake state across the deep-sleep reset.
//
// The record is a fixed-layout, checksummed snapshot written into the retained
// memory region right before the chip powers down: the armed kinds in
// declaration order plus the payload each source needs to rebuild its
// descriptor on the next boot. The boot-time resolver is the only reader; it
// consumes the record by clearing it.
package retained
