/*
Package container implements a physical chunk: a byte-keyed, byte-valued
ordered map persisted in a single BoltDB file.

Layout of a container directory:

	<dir>/chunks/<id>     committed chunk file
	<dir>/locks/<id>      writer lock file
	<dir>/progress/<id>   marker of the chunk with uncommitted writes

Writes are staged in memory and become visible to other processes only on
Commit, which replaces the chunk file atomically. A chunk file is never
modified in place, so readers never block on a writer: they notice the
replacement on the next access and reopen the file.

At most one writer per chunk is allowed: the write open takes an exclusive
non-blocking lock and fails with common.ErrWriteLockHeld if it is held.
*/
package container
