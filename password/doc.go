// Package password implements credential hashing and candidate evaluation.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The salt and cost parameters travel inside the string, so [Hasher.Verify]
// works against hashes produced under different configurations.
//
// # Evaluation
//
// [Evaluate] scores a candidate against the composition rules and the
// common-password denylist before it is ever hashed. A [Report] with
// Valid set to false means the candidate must be rejected.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any sibling package.
//   - Log plaintext candidates.
package password
