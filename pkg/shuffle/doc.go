// Package shuffle implements a handle-indexed memory manager that relocates
// live allocations between bump-pointer regions to fight fragmentation and
// frustrate memory forensics. Every allocation sits encrypted at rest and is
// decrypted only inside an explicit Rent/Return borrow window; compaction
// copies survivors into a fresh region in cryptographically random order, so
// the physical layout after a shuffle carries no information about
// allocation order.
package shuffle
