// Package antientropy repairs stale replicas in the background.
//
// Every interval a replica samples one random key of its store, reads its value
// and version and sends an UPDATE to a random subset of its peers (at most
// fanout peers). A peer applies the update only if the version is strictly
// greater than its own, so repeated and reordered updates are harmless. A peer
// that cannot be reached is logged and skipped. A round keeps no state, repeated
// sampling over time makes the replicas converge.
//
// Rounds are skipped when the store is empty or the sampled key is busy. A
// receiving replica skips the update as well when one of the key's locks is
// taken. Both are retried implicitly by later rounds.
package antientropy
