/*
Package session implements conversation snapshot management and persistence orchestration.

It serializes access to each session with reference counted local locks, optionally
backed by a distributed lock, so that concurrent requests for the same conversation
never interleave their load-modify-save cycles across replicas.
*/
package session
