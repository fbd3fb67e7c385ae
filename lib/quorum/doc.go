// Package quorum implements the client side coordination of the replicated store:
// quorum selection, the locked quorum write and the quorum read.
//
// Quorum selection:
//
//	The read quorum (R members) and the write quorum (W members) are drawn
//	independently from the N configured replicas, each without duplicates.
//	The configuration must satisfy W > N/2 and R + W > N, so any two write
//	quorums and any read and write quorum share a replica. With the fixed policy
//	(default) the quorums are drawn once when the coordinator is created, with the
//	per-operation policy every Put and Get draws new quorums.
//
// Write protocol (Put):
//
//  1. Connect to every member of the write quorum and acquire the write lock of the key.
//  2. If any member denies the lock or is unreachable, release the granted locks and fail.
//     A partial lock set is never used to write.
//  3. Compute the new version as the highest version reported while locking plus one.
//  4. Send the put to every member, the replica releases the lock afterward.
//     A failed put after successful locking is logged and reported in PutResult.Failed,
//     it is not rolled back.
//
// Read protocol (Get):
//
//	Read the key from every member of the read quorum and return the value with the
//	highest version. Replicas that fail to answer are ignored. There is no read repair,
//	stale replicas are fixed by anti-entropy.
//
// Per-replica round trips run in parallel. The coordinator never retries.
package quorum
