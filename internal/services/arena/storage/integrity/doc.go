// Package integrity hashes, chains and signs journal events so a stream can
// be replayed and verified for tampering.
package integrity
